package ledger

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const journal = `{"command":"deposit","date":"2024-01-01","amount":5000,"currency":"USD","memo":"initial"}
{"command":"sell","date":"2024-03-01","security":"AAPL","quantity":4,"price":180.5}
{"command":"buy","date":"2024-01-02","security":"AAPL","quantity":10,"price":185.64}

{"command":"dividend","date":"2024-02-15","security":"AAPL","amount":2.4}
{"command":"convert","date":"2024-02-20","fromCurrency":"USD","fromAmount":1000,"toCurrency":"EUR","toAmount":920}
{"command":"withdraw","date":"2024-03-02","amount":100,"currency":"USD"}
`

func TestLoad(t *testing.T) {
	transactions, err := Load(strings.NewReader(journal))
	require.NoError(t, err)
	require.Len(t, transactions, 6)

	var commands []CommandType
	for _, tx := range transactions {
		commands = append(commands, tx.What())
	}
	assert.Equal(t, []CommandType{CmdDeposit, CmdBuy, CmdDividend, CmdConvert, CmdSell, CmdWithdraw}, commands, "sorted by date")
	assert.Equal(t, "initial", transactions[0].Rationale())
}

func TestLoadErrors(t *testing.T) {
	for _, line := range []string{
		`{"command":"gift","date":"2024-01-01"}`,
		`{"command":"buy","date":"2024-01-01","quantity":"ten"}`,
		`{"command":"buy"}`,
		`not json`,
	} {
		_, err := Load(strings.NewReader(line))
		assert.Error(t, err, line)
	}
}

func query(path string, filters map[string]string) dataterm.Query {
	return dataterm.Query{
		Source:  Name,
		Symbol:  path,
		Range:   date.NewRange(date.New(2024, 1, 1), date.New(2024, 12, 31)),
		Limit:   10,
		Filters: filters,
	}
}

func TestFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(journal), 0o644))

	table, err := New().Fetch(context.Background(), query(path, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "command", "security", "quantity", "price", "amount", "currency", "memo"}, table.Names())
	assert.Equal(t, 6, table.Len())

	amounts, err := table.Floats("amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{5000, -1856.4, 2.4, 920, 722, -100}, amounts)

	quantities, err := table.Floats("quantity")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(quantities[0]))
	assert.Equal(t, -4.0, quantities[4], "sold quantities are negative")

	price, err := table.Value(3, "price")
	require.NoError(t, err)
	assert.Equal(t, 0.92, price, "conversion rate")
}

func TestFetchFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(journal), 0o644))

	table, err := New().Fetch(context.Background(), query(path, map[string]string{"security": "aapl"}))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	table, err = New().Fetch(context.Background(), query(path, map[string]string{"security": "aapl", "command": "buy"}))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	q := query(path, nil)
	q.Range = date.NewRange(date.New(2024, 2, 1), date.New(2024, 2, 29))
	table, err = New().Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestFetchErrors(t *testing.T) {
	_, err := New().Fetch(context.Background(), query(filepath.Join(t.TempDir(), "missing.jsonl"), nil))
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"command":"gift","date":"2024-01-01"}`), 0o644))
	_, err = New().Fetch(context.Background(), query(path, nil))
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)
}
