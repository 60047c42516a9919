package eodhd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// searchResult matches the structure of a single item in the EODHD search API response.
type searchResult struct {
	Code              string              `json:"Code"`
	Exchange          string              `json:"Exchange"`
	Name              string              `json:"Name"`
	Type              string              `json:"Type"`
	Country           string              `json:"Country"`
	Currency          string              `json:"Currency"`
	ISIN              string              `json:"ISIN"`
	PreviousClose     decimal.NullDecimal `json:"previousClose"`
	PreviousCloseDate *date.Date          `json:"previousCloseDate"`
}

// search returns the securities matching term, one row per listing.
func (s *Source) search(ctx context.Context, term string) (*dataterm.Table, error) {
	var results []searchResult
	if err := dataterm.GetJSON(ctx, s.client, s.addr("search/"+url.PathEscape(term), nil), &results); err != nil {
		return nil, err
	}
	t := dataterm.MustTable(
		dataterm.Category("ticker"),
		dataterm.Category("name"),
		dataterm.Category("type"),
		dataterm.Category("country"),
		dataterm.Category("currency"),
		dataterm.Category("isin"),
		dataterm.Float("previous_close"),
		dataterm.Date("previous_close_date"),
	)
	for _, r := range results {
		var day any
		if r.PreviousCloseDate != nil {
			day = *r.PreviousCloseDate
		}
		ticker := r.Code + "." + r.Exchange
		if err := t.Append(ticker, r.Name, r.Type, r.Country, r.Currency, r.ISIN, float(r.PreviousClose), day); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", dataterm.ErrSourceUnavailable, ticker, err)
		}
	}
	return t, nil
}
