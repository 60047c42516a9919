// Package insee is the source for the statistical time series published by
// INSEE (https://www.insee.fr), identified by their idBank.
package insee

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
)

// Name of the source.
const Name = "insee"

// BaseURL is the root of the INSEE macro-economic database.
const BaseURL = "https://bdm.insee.fr/series"

// Source fetches INSEE series.
type Source struct {
	client *http.Client
	// BaseURL defaults to the package BaseURL.
	BaseURL string
}

// New returns a source using client.
func New(client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{client: client, BaseURL: BaseURL}
}

func (s *Source) Name() string { return Name }

func (s *Source) Description() string {
	return "INSEE statistical series by idBank, e.g. 001763825 (consumer price index)"
}

// Fetch implements dataterm.Source. Rows are dated at the end of their
// period and sorted by date.
func (s *Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	idBank := strings.TrimSpace(q.Symbol)
	if _, err := strconv.Atoi(idBank); err != nil {
		return nil, fmt.Errorf("%w: idBank %q is not a number", dataterm.ErrInvalidParameters, q.Symbol)
	}
	body, err := dataterm.GetBody(ctx, s.client, s.addr(idBank, q.Range))
	if err != nil {
		return nil, err
	}
	series, err := readArchive(body)
	if err != nil {
		return nil, fmt.Errorf("%w: series %s: %v", dataterm.ErrSourceUnavailable, idBank, err)
	}

	days := make([]date.Date, 0, len(series.Values))
	for day := range series.Values {
		if q.Range.Contains(day) {
			days = append(days, day)
		}
	}
	slices.SortFunc(days, date.Date.Compare)

	t := dataterm.MustTable(dataterm.Date("date"), dataterm.Float("value"))
	for _, day := range days {
		if err := t.Append(day, series.Values[day]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *Source) addr(idBank string, r date.Range) string {
	startQuarter := (int(r.From.Month())-1)/3 + 1
	endQuarter := (int(r.To.Month())-1)/3 + 1
	params := url.Values{}
	params.Set("lang", "fr")
	params.Set("ordre", "antechronologique")
	params.Set("transposition", "donneescolonne")
	params.Set("periodeDebut", strconv.Itoa(startQuarter))
	params.Set("anneeDebut", strconv.Itoa(r.From.Year()))
	params.Set("periodeFin", strconv.Itoa(endQuarter))
	params.Set("anneeFin", strconv.Itoa(r.To.Year()))
	params.Set("revision", "sansrevisions")
	return fmt.Sprintf("%s/%s/csv?%s", strings.TrimSuffix(s.BaseURL, "/"), url.PathEscape(idBank), params.Encode())
}

// valueFiles are the names of the series file in the downloaded archive.
var valueFiles = []string{"valeurs_mensuelles.csv", "valeurs_trimestrielles.csv", "valeurs_annuelles.csv"}

// readArchive finds and parses the series file of a downloaded zip archive.
func readArchive(body []byte) (*Series, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var foundFiles []string
	for _, f := range zipReader.File {
		foundFiles = append(foundFiles, f.Name)
		if !slices.Contains(valueFiles, f.Name) {
			continue
		}
		csvFile, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %q from zip archive: %w", f.Name, err)
		}
		defer csvFile.Close()
		return parseSeries(csvFile)
	}
	return nil, fmt.Errorf("could not find a values file in archive (found: %s)", strings.Join(foundFiles, ", "))
}

// Series holds the data from an INSEE time series CSV file.
type Series struct {
	Libelle    string
	IDBank     string
	LastUpdate time.Time
	Values     map[date.Date]float64
}

// parseInseeDate parses a period like "2025", "2025-T2" or "2025-08" into the
// last day of that period.
func parseInseeDate(s string) (date.Date, error) {
	if strings.Contains(s, "-T") {
		return parseQuarterlyDate(s)
	}

	parts := strings.Split(s, "-")
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid year in date %q: %w", s, err)
	}
	switch len(parts) {
	case 1:
		return date.New(year, time.December, 31), nil
	case 2:
		month, err := strconv.Atoi(parts[1])
		if err != nil || month < 1 || month > 12 {
			return date.Date{}, fmt.Errorf("invalid month in monthly date %q", s)
		}
		return date.New(year, time.Month(month)+1, 0), nil
	}
	return date.Date{}, fmt.Errorf("unrecognized insee date format: %q", s)
}

// parseQuarterlyDate parses a string like "2025-T2" into the last day of the
// quarter.
func parseQuarterlyDate(s string) (date.Date, error) {
	parts := strings.Split(s, "-T")
	if len(parts) != 2 {
		return date.Date{}, fmt.Errorf("invalid quarterly date format: %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid year in quarterly date %q: %w", s, err)
	}
	quarter, err := strconv.Atoi(parts[1])
	if err != nil || quarter < 1 || quarter > 4 {
		return date.Date{}, fmt.Errorf("invalid quarter in quarterly date %q", s)
	}
	return date.New(year, time.Month(quarter*3)+1, 0), nil
}

// parseSeries reads the INSEE CSV format: three header lines (label, idBank,
// last update), a column header, then one period per line, most recent first.
func parseSeries(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 4 || len(records[0]) < 2 || len(records[1]) < 2 || len(records[2]) < 2 {
		return nil, fmt.Errorf("not enough records in csv to parse series")
	}

	series := &Series{
		Libelle: records[0][1],
		IDBank:  records[1][1],
		Values:  make(map[date.Date]float64),
	}
	series.LastUpdate, err = time.Parse("02/01/2006 15:04", records[2][1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse last update date %q: %w", records[2][1], err)
	}

	for _, record := range records[4:] {
		if len(record) < 2 || record[1] == "" {
			continue
		}
		day, err := parseInseeDate(record[0])
		if err != nil {
			return nil, err
		}
		val, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse value %q for date %q: %w", record[1], record[0], err)
		}
		series.Values[day] = val
	}
	return series, nil
}
