package dataterm

import (
	"testing"

	"github.com/etnz/dataterm/date"
	"github.com/stretchr/testify/require"
)

// aapl returns ten days of prices with distinct volumes.
func aapl(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		Date("date"),
		Money("open", "usd"),
		Money("high", "usd"),
		Money("low", "usd"),
		Money("close", "usd"),
		Integer("volume"),
	)
	require.NoError(t, err)
	rows := []struct {
		day                    string
		open, high, low, close float64
		volume                 int64
	}{
		{"2024-01-02", 187.15, 188.44, 183.89, 185.64, 82488700},
		{"2024-01-03", 184.22, 185.88, 183.43, 184.25, 58414500},
		{"2024-01-04", 182.15, 183.09, 180.88, 181.91, 71983600},
		{"2024-01-05", 181.99, 182.76, 180.17, 181.18, 62303300},
		{"2024-01-08", 182.09, 185.60, 181.50, 185.56, 59144500},
		{"2024-01-09", 183.92, 185.15, 182.73, 185.14, 42841800},
		{"2024-01-10", 184.35, 186.40, 183.92, 186.19, 46792900},
		{"2024-01-11", 186.54, 187.05, 183.62, 185.59, 49128400},
		{"2024-01-12", 186.06, 186.74, 185.19, 185.92, 40444700},
		{"2024-01-16", 182.16, 184.26, 180.93, 183.63, 65603000},
	}
	for _, r := range rows {
		require.NoError(t, table.Append(date.MustParse(r.day), r.open, r.high, r.low, r.close, r.volume))
	}
	return table
}

// funds returns a small categorical table.
func funds(t *testing.T) *Table {
	t.Helper()
	table := MustTable(Category("code"), Category("side"), Float("amount"))
	for _, r := range [][]any{
		{"VTI", "buy", 100.0},
		{"VXUS", "sell", 50.0},
		{"BND", "Buy", 25.0},
		{"VTI", "sell", nil},
	} {
		require.NoError(t, table.Append(r...))
	}
	return table
}

func column(t *testing.T, table *Table, name string) []any {
	t.Helper()
	j, _, err := table.Column(name)
	require.NoError(t, err)
	values := make([]any, 0, table.Len())
	for _, row := range table.Rows() {
		values = append(values, row[j])
	}
	return values
}
