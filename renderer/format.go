package renderer

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// FormatCell returns the display string of a cell of column c.
// Missing values are rendered as an empty string.
func FormatCell(c dataterm.Column, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case date.Date:
		return x.String()
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		if math.IsInf(x, 0) {
			if x > 0 {
				return "inf"
			}
			return "-inf"
		}
		if c.Currency != "" {
			return formatMoney(x, c.Currency)
		}
		return formatFloat(x)
	case int64:
		if c.Currency != "" {
			return formatMoney(float64(x), c.Currency)
		}
		return decimal.NewFromInt(x).String()
	case string:
		return x
	}
	return ""
}

// formatFloat keeps 2 decimals, or 4 for values below one.
func formatFloat(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return d.StringFixed(4)
	}
	return d.StringFixed(2)
}

// formatMoney formats an amount with its currency symbol and fraction digits.
func formatMoney(v float64, code string) string {
	// to get a never nil currency I need to call the Money constructor
	cur := *money.New(0, code).Currency()
	amount := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(amount.IntPart())
}

// escape makes s safe inside a markdown table cell.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
