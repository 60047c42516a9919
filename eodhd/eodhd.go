// Package eodhd is the source for end of day market data from EOD Historical
// Data (https://eodhd.com).
//
// Symbols are EODHD tickers in the format "SYMBOL.EXCHANGE", e.g. AAPL.US,
// EURUSD.FOREX. The "kind" filter selects the dataset:
//
//	eod     daily, weekly or monthly prices (default)
//	div     dividend history
//	splits  split history
//	search  securities matching the symbol taken as a search term
//
// The "currency" filter sets the currency of the price columns.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/dataterm"
)

// Name of the source.
const Name = "eodhd"

// BaseURL is the root of the EODHD API.
const BaseURL = "https://eodhd.com/api"

// Source fetches datasets from the EODHD API.
type Source struct {
	client *http.Client
	key    string
	// BaseURL defaults to the package BaseURL.
	BaseURL string
}

// New returns a source using client and the API key.
func New(client *http.Client, apiKey string) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{client: client, key: apiKey, BaseURL: BaseURL}
}

func (s *Source) Name() string { return Name }

func (s *Source) Description() string {
	return "EOD Historical Data: prices, dividends and splits of a ticker like AAPL.US (kind=eod|div|splits|search)"
}

// Fetch implements dataterm.Source.
func (s *Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	if s.key == "" {
		return nil, fmt.Errorf("%w: no api key, set EODHD_API_KEY or eodhd.api_key", dataterm.ErrSourceUnavailable)
	}
	ticker := strings.ToUpper(strings.TrimSpace(q.Symbol))
	switch kind := q.Filter("kind", "eod"); kind {
	case "eod":
		return s.fetchPrices(ctx, ticker, q)
	case "div":
		return s.fetchDividends(ctx, ticker, q)
	case "splits":
		return s.fetchSplits(ctx, ticker, q)
	case "search":
		return s.search(ctx, q.Symbol)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q, want eod, div, splits or search", dataterm.ErrInvalidParameters, kind)
	}
}

// addr returns the address of an API endpoint.
func (s *Source) addr(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", s.key)
	params.Set("fmt", "json")
	return fmt.Sprintf("%s/%s?%s", strings.TrimSuffix(s.BaseURL, "/"), path, params.Encode())
}
