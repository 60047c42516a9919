package eodhd

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// This file contains functions to access the EODHD API.

// periods maps query intervals to the EODHD period parameter.
var periods = map[string]string{"1d": "d", "1w": "w", "1mo": "m"}

// eodRecord is an item of https://eodhd.com/api/eod/NVD.F?api_token=demo&fmt=json
//
//	{
//		"date": "2024-02-13",
//		"open": 675.066,
//		"high": 684.219,
//		"low": 648.659,
//		"close": 668.445,
//		"adjusted_close": 67.705,
//		"volume": 0
//	}
type eodRecord struct {
	Date          date.Date           `json:"date"`
	Open          decimal.NullDecimal `json:"open"`
	High          decimal.NullDecimal `json:"high"`
	Low           decimal.NullDecimal `json:"low"`
	Close         decimal.NullDecimal `json:"close"`
	AdjustedClose decimal.NullDecimal `json:"adjusted_close"`
	Volume        decimal.NullDecimal `json:"volume"`
}

// fetchPrices returns the open, high, low, close prices and the volume of a
// ticker. Bounds are included in the response.
func (s *Source) fetchPrices(ctx context.Context, ticker string, q dataterm.Query) (*dataterm.Table, error) {
	from, to := q.Range.From, q.Range.To
	forex := strings.HasSuffix(ticker, ".FOREX")
	if forex {
		// a few more days to find the next open of the last day
		to = to.Add(4)
	}
	params := url.Values{}
	params.Set("from", from.String())
	params.Set("to", to.String())
	if p, ok := periods[q.Interval]; ok {
		params.Set("period", p)
	}

	var content []eodRecord
	if err := dataterm.GetJSON(ctx, s.client, s.addr(path.Join("eod", url.PathEscape(ticker)), params), &content); err != nil {
		return nil, err
	}
	if forex {
		// eodhd forex close is most of the time equal to the open. The open of
		// the next day is closer to the truth.
		for i := 0; i+1 < len(content); i++ {
			if content[i+1].Open.Valid {
				content[i].Close = content[i+1].Open
			}
		}
		for len(content) > 0 && content[len(content)-1].Date.After(q.Range.To) {
			content = content[:len(content)-1]
		}
	}

	cur := q.Filter("currency", "")
	price := func(name string) dataterm.Column {
		if cur == "" {
			return dataterm.Float(name)
		}
		return dataterm.Money(name, cur)
	}
	t, err := dataterm.NewTable(
		dataterm.Date("date"),
		price("open"),
		price("high"),
		price("low"),
		price("close"),
		price("adjusted_close"),
		dataterm.Integer("volume"),
	)
	if err != nil {
		return nil, err
	}
	for _, r := range content {
		var volume any
		if r.Volume.Valid {
			volume = r.Volume.Decimal.IntPart()
		}
		err := t.Append(r.Date, float(r.Open), float(r.High), float(r.Low), float(r.Close), float(r.AdjustedClose), volume)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", dataterm.ErrSourceUnavailable, r.Date, err)
		}
	}
	return t, nil
}

// float converts a nullable decimal, null is NaN.
func float(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return math.NaN()
	}
	return d.Decimal.InexactFloat64()
}

// fetchDividends returns the dividend history of a ticker.
func (s *Source) fetchDividends(ctx context.Context, ticker string, q dataterm.Query) (*dataterm.Table, error) {
	params := url.Values{}
	params.Set("from", q.Range.From.String())
	params.Set("to", q.Range.To.String())

	type apiDividend struct {
		Date     date.Date           `json:"date"` // ex-dividend date, see https://eodhd.com/financial-apis/api-splits-dividends
		Value    decimal.NullDecimal `json:"value"`
		Currency string              `json:"currency"`
	}

	var content []apiDividend
	if err := dataterm.GetJSON(ctx, s.client, s.addr(path.Join("div", url.PathEscape(ticker)), params), &content); err != nil {
		return nil, err
	}
	t := dataterm.MustTable(dataterm.Date("date"), dataterm.Float("value"), dataterm.Category("currency"))
	for _, d := range content {
		if err := t.Append(d.Date, float(d.Value), d.Currency); err != nil {
			return nil, fmt.Errorf("%w: dividend %s: %v", dataterm.ErrSourceUnavailable, d.Date, err)
		}
	}
	return t, nil
}

// fetchSplits returns the split history of a ticker, with the split ratio
// simplified to an integer fraction.
func (s *Source) fetchSplits(ctx context.Context, ticker string, q dataterm.Query) (*dataterm.Table, error) {
	params := url.Values{}
	params.Set("from", q.Range.From.String())
	params.Set("to", q.Range.To.String())

	type apiSplit struct {
		Date  date.Date `json:"date"`
		Split string    `json:"split"`
	}

	var content []apiSplit
	if err := dataterm.GetJSON(ctx, s.client, s.addr(path.Join("splits", url.PathEscape(ticker)), params), &content); err != nil {
		return nil, err
	}
	t := dataterm.MustTable(
		dataterm.Date("date"),
		dataterm.Integer("numerator"),
		dataterm.Integer("denominator"),
		dataterm.Float("ratio"),
	)
	for _, sp := range content {
		num, den, err := parseSplit(sp.Split)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
		}
		if err := t.Append(sp.Date, num, den, float64(num)/float64(den)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// parseSplit parses a split like "4.000000/1.000000".
func parseSplit(split string) (num, den int64, err error) {
	parts := strings.Split(split, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid split format from API: %q", split)
	}
	numDecimal, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid numerator in split %q: %w", split, err)
	}
	denDecimal, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid denominator in split %q: %w", split, err)
	}
	if numDecimal.IsZero() || denDecimal.IsZero() {
		return 0, 0, fmt.Errorf("invalid split %q", split)
	}
	num, den = simplifyDecimalRatio(numDecimal, denDecimal)
	return num, den, nil
}
