package eodhd

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eod = `[
 {"date":"2024-01-02","open":187.15,"high":188.44,"low":183.89,"close":185.64,"adjusted_close":184.73,"volume":82488700},
 {"date":"2024-01-03","open":184.22,"high":185.88,"low":183.43,"close":184.25,"adjusted_close":183.35,"volume":58414500},
 {"date":"2024-01-04","open":182.15,"high":183.09,"low":180.88,"close":null,"adjusted_close":181.02,"volume":null}
]`

// server answers path with body and records the last request.
func server(t *testing.T, path, body string) (*Source, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("api_token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	s := New(srv.Client(), "secret")
	s.BaseURL = srv.URL + "/api"
	return s, &last
}

func query(symbol string, filters map[string]string) dataterm.Query {
	return dataterm.Query{
		Source:   Name,
		Symbol:   symbol,
		Range:    date.NewRange(date.New(2024, 1, 1), date.New(2024, 1, 31)),
		Interval: "1w",
		Limit:    10,
		Filters:  filters,
	}
}

func TestFetchPrices(t *testing.T) {
	s, last := server(t, "/api/eod/AAPL.US", eod)
	table, err := s.Fetch(context.Background(), query("aapl.us", map[string]string{"currency": "USD"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "open", "high", "low", "close", "adjusted_close", "volume"}, table.Names())
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "2024-01-01", last.URL.Query().Get("from"))
	assert.Equal(t, "2024-01-31", last.URL.Query().Get("to"))
	assert.Equal(t, "w", last.URL.Query().Get("period"))
	assert.Equal(t, "json", last.URL.Query().Get("fmt"))

	_, c, err := table.Column("close")
	require.NoError(t, err)
	assert.Equal(t, "USD", c.Currency)

	closes, err := table.Floats("close")
	require.NoError(t, err)
	assert.Equal(t, 185.64, closes[0])
	assert.True(t, math.IsNaN(closes[2]))
	v, err := table.Value(0, "volume")
	require.NoError(t, err)
	assert.Equal(t, int64(82488700), v)
	v, err = table.Value(2, "volume")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFetchForex(t *testing.T) {
	body := `[
 {"date":"2024-01-30","open":1.08,"high":1.09,"low":1.07,"close":1.08,"adjusted_close":1.08,"volume":0},
 {"date":"2024-01-31","open":1.085,"high":1.09,"low":1.07,"close":1.085,"adjusted_close":1.085,"volume":0},
 {"date":"2024-02-01","open":1.081,"high":1.09,"low":1.07,"close":1.081,"adjusted_close":1.081,"volume":0}
]`
	s, last := server(t, "/api/eod/EURUSD.FOREX", body)
	table, err := s.Fetch(context.Background(), query("EURUSD.FOREX", nil))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-04", last.URL.Query().Get("to"))
	assert.Equal(t, 2, table.Len(), "days after the range are dropped")
	closes, err := table.Floats("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.085, 1.081}, closes, "close is the next open")
}

func TestFetchDividends(t *testing.T) {
	s, _ := server(t, "/api/div/AAPL.US", `[{"date":"2024-02-09","value":0.24,"currency":"USD"}]`)
	table, err := s.Fetch(context.Background(), query("AAPL.US", map[string]string{"kind": "div"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "value", "currency"}, table.Names())
	assert.Equal(t, []any{date.New(2024, 2, 9), 0.24, "USD"}, table.Row(0))
}

func TestFetchSplits(t *testing.T) {
	s, _ := server(t, "/api/splits/AAPL.US", `[{"date":"2020-08-31","split":"4.000000/1.000000"},{"date":"2000-06-21","split":"1.5/1"}]`)
	table, err := s.Fetch(context.Background(), query("AAPL.US", map[string]string{"kind": "splits"}))
	require.NoError(t, err)
	assert.Equal(t, []any{date.New(2020, 8, 31), int64(4), int64(1), 4.0}, table.Row(0))
	assert.Equal(t, []any{date.New(2000, 6, 21), int64(3), int64(2), 1.5}, table.Row(1))
}

func TestSearch(t *testing.T) {
	s, _ := server(t, "/api/search/apple inc", `[{"Code":"AAPL","Exchange":"US","Name":"Apple Inc","Type":"Common Stock","Country":"USA","Currency":"USD","ISIN":"US0378331005","previousClose":185.64,"previousCloseDate":"2024-01-02"}]`)
	table, err := s.Fetch(context.Background(), query("apple inc", map[string]string{"kind": "search"}))
	require.NoError(t, err)
	v, err := table.Value(0, "ticker")
	require.NoError(t, err)
	assert.Equal(t, "AAPL.US", v)
}

func TestFetchErrors(t *testing.T) {
	s, _ := server(t, "/api/eod/AAPL.US", eod)

	_, err := s.Fetch(context.Background(), query("MSFT.US", nil))
	assert.ErrorIs(t, err, dataterm.ErrEmptyResult)

	_, err = s.Fetch(context.Background(), query("AAPL.US", map[string]string{"kind": "options"}))
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	s.key = "wrong"
	_, err = s.Fetch(context.Background(), query("AAPL.US", nil))
	assert.ErrorIs(t, err, dataterm.ErrSourceUnavailable)

	_, err = New(nil, "").Fetch(context.Background(), query("AAPL.US", nil))
	assert.ErrorIs(t, err, dataterm.ErrSourceUnavailable)

	bad, _ := server(t, "/api/eod/AAPL.US", `{"error":`)
	_, err = bad.Fetch(context.Background(), query("AAPL.US", nil))
	assert.ErrorIs(t, err, dataterm.ErrSourceUnavailable)
}

func TestSimplifyDecimalRatio(t *testing.T) {
	tests := []struct {
		num, den string
		n, d     int64
	}{
		{"4.000000", "1.000000", 4, 1},
		{"1.5", "1", 3, 2},
		{"1", "10", 1, 10},
		{"7", "0.5", 14, 1},
	}
	for _, tt := range tests {
		n, d := simplifyDecimalRatio(decimal.RequireFromString(tt.num), decimal.RequireFromString(tt.den))
		assert.Equal(t, tt.n, n, "%s/%s", tt.num, tt.den)
		assert.Equal(t, tt.d, d, "%s/%s", tt.num, tt.den)
	}
}
