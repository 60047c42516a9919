// Package onchain is the source for on-chain metrics served as JSON time
// series by HTTP endpoints declared in the configuration.
//
// A symbol is "endpoint:asset". The endpoint URL may contain {asset}, {start}
// and {end} placeholders. Jsonpath expressions locate the array of records in
// the answer, then the date and the fields in each record.
package onchain

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// Name of the source.
const Name = "onchain"

// Source fetches configured endpoints.
type Source struct {
	client    *http.Client
	endpoints map[string]dataterm.EndpointConfig
}

// New returns a source serving endpoints.
func New(client *http.Client, endpoints []dataterm.EndpointConfig) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Source{client: client, endpoints: make(map[string]dataterm.EndpointConfig)}
	for _, e := range endpoints {
		s.endpoints[e.Name] = e
	}
	return s
}

func (s *Source) Name() string { return Name }

func (s *Source) Description() string {
	if len(s.endpoints) == 0 {
		return "on-chain metrics, no endpoint configured (onchain.endpoints)"
	}
	return "on-chain metrics as endpoint:asset, endpoints: " + strings.Join(s.Endpoints(), ", ")
}

// Endpoints returns the configured endpoint names, sorted.
func (s *Source) Endpoints() []string {
	names := make([]string, 0, len(s.endpoints))
	for name := range s.endpoints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Fetch implements dataterm.Source. Records outside of the query range are
// dropped, the others are sorted by date.
func (s *Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	name, asset, _ := strings.Cut(q.Symbol, ":")
	e, ok := s.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown endpoint %q, want one of %v", dataterm.ErrInvalidParameters, name, s.Endpoints())
	}

	var answer any
	if err := dataterm.GetJSON(ctx, s.client, expand(e.URL, asset, q.Range), &answer); err != nil {
		return nil, err
	}
	records, err := jsonpath.Get(e.Records, answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: records %q: %v", dataterm.ErrSourceUnavailable, e.Name, e.Records, err)
	}
	list, ok := records.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: records %q is not an array", dataterm.ErrSourceUnavailable, e.Name, e.Records)
	}

	type row struct {
		day    date.Date
		values []any
	}
	rows := make([]row, 0, len(list))
	for i, rec := range list {
		v, err := get(e.Date, rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %v", dataterm.ErrSourceUnavailable, e.Name, i, err)
		}
		day, err := parseDate(v, e.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %v", dataterm.ErrSourceUnavailable, e.Name, i, err)
		}
		if !q.Range.Contains(day) {
			continue
		}
		r := row{day: day, values: []any{day}}
		for _, f := range e.Fields {
			v, err := get(f.Path, rec)
			if err != nil {
				// a field missing in a record is a missing value
				v = nil
			}
			r.values = append(r.values, number(v))
		}
		rows = append(rows, r)
	}
	slices.SortStableFunc(rows, func(a, b row) int { return a.day.Compare(b.day) })

	columns := []dataterm.Column{dataterm.Date("date")}
	for _, f := range e.Fields {
		columns = append(columns, dataterm.Float(f.Name))
	}
	t, err := dataterm.NewTable(columns...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := t.Append(r.values...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// expand replaces the placeholders of an endpoint URL.
func expand(addr, asset string, r date.Range) string {
	return strings.NewReplacer(
		"{asset}", url.PathEscape(asset),
		"{start}", r.From.String(),
		"{end}", r.To.String(),
	).Replace(addr)
}

// get evaluates path on v. jsonpath is never clear whether it returns a list of
// one answer or the answer itself, so the first element of a list is kept.
func get(path string, v any) (any, error) {
	val, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, err
	}
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil, nil
		}
		val = list[0]
	}
	return val, nil
}

// number converts a JSON value to a float, anything else is missing.
func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if d, err := decimal.NewFromString(x); err == nil {
			return d.InexactFloat64()
		}
	}
	return math.NaN()
}

// parseDate converts a JSON value to a date. format is "unix" (seconds),
// "unix_ms" (milliseconds), a time layout, or empty for the usual date formats.
func parseDate(v any, format string) (date.Date, error) {
	switch format {
	case "unix", "unix_ms":
		var n float64
		switch x := v.(type) {
		case float64:
			n = x
		case string:
			d, err := decimal.NewFromString(x)
			if err != nil {
				return date.Date{}, fmt.Errorf("invalid timestamp %q", x)
			}
			n = d.InexactFloat64()
		default:
			return date.Date{}, fmt.Errorf("invalid timestamp %v", v)
		}
		if format == "unix_ms" {
			return date.FromTime(time.UnixMilli(int64(n)).UTC()), nil
		}
		return date.FromTime(time.Unix(int64(n), 0).UTC()), nil
	}

	s, ok := v.(string)
	if !ok {
		return date.Date{}, fmt.Errorf("invalid date %v", v)
	}
	if format == "" {
		// timestamps like 2024-01-02T00:00:00Z
		if len(s) > len(date.DateFormat) && s[len(date.DateFormat)] == 'T' {
			s = s[:len(date.DateFormat)]
		}
		return date.Parse(s)
	}
	t, err := time.Parse(format, s)
	if err != nil {
		return date.Date{}, err
	}
	return date.FromTime(t), nil
}
