package dataterm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/dataterm/ta"
)

// Indicator describes a derived column computation.
type Indicator struct {
	// Kind is the indicator name, see Indicators.
	Kind string `validate:"required"`
	// Column is the input column, "close" by default.
	Column string
	// Window is the rolling window length, 0 for the indicator default.
	Window int `validate:"min=0"`
	// Scalar is the band width of bbands in standard deviations.
	Scalar float64 `validate:"min=0"`
	// Period is the seasonal period of diff.
	Period int `validate:"min=0"`
	// Ref is the reference column of ratio and beta.
	Ref string
	// As names the output column, or prefixes the output columns.
	As string
}

type indicatorDef struct {
	window      int  // default window
	extraRow    bool // needs window+1 rows
	needsRef    bool
	description string
}

var indicators = map[string]indicatorDef{
	"sma":     {window: 20, description: "simple moving average"},
	"ema":     {window: 20, description: "exponential moving average"},
	"rsi":     {window: 14, extraRow: true, description: "relative strength index"},
	"stddev":  {window: 20, description: "rolling standard deviation"},
	"bbands":  {window: 20, description: "Bollinger bands (mid, upper, lower), -scalar standard deviations wide"},
	"atr":     {window: 14, description: "average true range of high, low and close"},
	"returns": {window: 1, extraRow: true, description: "relative change over -window rows"},
	"diff":    {description: "seasonal difference over -period rows"},
	"zscore":  {window: 20, description: "distance to the rolling mean in standard deviations"},
	"ratio":   {needsRef: true, description: "column divided by the -ref column"},
	"beta":    {window: 20, extraRow: true, needsRef: true, description: "rolling regression slope of returns against the -ref column"},
}

// Indicators returns the indicator names, sorted.
func Indicators() []string {
	names := make([]string, 0, len(indicators))
	for name := range indicators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IndicatorDescription returns a one line description of the named indicator.
func IndicatorDescription(name string) string { return indicators[name].description }

// withDefaults checks ind against t and fills the defaults.
func (ind Indicator) withDefaults(t *Table) (Indicator, error) {
	if err := validateStruct(ind); err != nil {
		return ind, err
	}
	ind.Kind = strings.ToLower(ind.Kind)
	def, ok := indicators[ind.Kind]
	if !ok {
		return ind, invalidf("unknown indicator %q (have %s)", ind.Kind, strings.Join(Indicators(), ", "))
	}
	if ind.Column == "" {
		ind.Column = "close"
	}
	if ind.Window == 0 {
		ind.Window = def.window
	}
	if ind.Kind == "bbands" && ind.Scalar == 0 {
		ind.Scalar = 2
	}
	if ind.Kind == "diff" {
		if ind.Period == 0 {
			ind.Period = 1
		}
		ind.Window = ind.Period
		def.extraRow = true
	}
	if def.needsRef && ind.Ref == "" {
		return ind, invalidf("indicator %s needs a reference column", ind.Kind)
	}
	if ind.Kind == "beta" && ind.Window < 2 {
		return ind, invalidf("indicator beta needs a window of at least 2")
	}

	inputs := []string{ind.Column}
	switch {
	case ind.Kind == "atr":
		inputs = []string{"high", "low", "close"}
	case def.needsRef:
		inputs = append(inputs, ind.Ref)
	}
	for _, name := range inputs {
		_, c, err := t.Column(name)
		if err != nil {
			return ind, err
		}
		if !c.Kind.IsNumeric() {
			return ind, invalidf("column %q is %s, not numeric", name, c.Kind)
		}
	}

	need := ind.Window
	if def.extraRow {
		need++
	}
	if t.Len() < need {
		return ind, fmt.Errorf("%w: %s over %d rows needs %d rows, have %d", ErrInsufficientRows, ind.Kind, ind.Window, need, t.Len())
	}

	if ind.As == "" {
		switch ind.Kind {
		case "ratio":
			ind.As = ind.Column + "_to_" + ind.Ref
		case "atr":
			ind.As = fmt.Sprintf("atr_%d", ind.Window)
		case "bbands":
			ind.As = fmt.Sprintf("bb_%d", ind.Window)
		default:
			ind.As = fmt.Sprintf("%s_%s_%d", ind.Column, ind.Kind, ind.Window)
		}
	}
	return ind, nil
}

type derived struct {
	name     string
	currency string
	values   []float64
}

// compute runs the indicator, ind must have been through withDefaults.
func (ind Indicator) compute(t *Table) ([]derived, error) {
	x, err := t.Floats(ind.Column)
	if err != nil {
		return nil, err
	}
	_, input, _ := t.Column(ind.Column)
	// price level indicators keep the input currency.
	currency := input.Currency
	one := func(values []float64) []derived {
		return []derived{{name: ind.As, currency: currency, values: values}}
	}

	switch ind.Kind {
	case "sma":
		return one(ta.SMASeries(x, ind.Window)), nil
	case "ema":
		return one(ta.EMASeries(x, ind.Window)), nil
	case "stddev":
		return one(ta.StdDevSeries(x, ind.Window)), nil
	case "diff":
		return one(ta.Diff(x, ind.Period)), nil
	case "bbands":
		mid, up, low := ta.BollingerSeries(x, ind.Window, ind.Scalar)
		return []derived{
			{name: ind.As + "_mid", currency: currency, values: mid},
			{name: ind.As + "_upper", currency: currency, values: up},
			{name: ind.As + "_lower", currency: currency, values: low},
		}, nil
	}

	currency = ""
	switch ind.Kind {
	case "rsi":
		return one(ta.RSISeries(x, ind.Window)), nil
	case "returns":
		return one(ta.Returns(x, ind.Window)), nil
	case "zscore":
		return one(ta.ZScoreSeries(x, ind.Window)), nil
	case "atr":
		highs, _ := t.Floats("high")
		lows, _ := t.Floats("low")
		closes, _ := t.Floats("close")
		_, c, _ := t.Column("close")
		currency = c.Currency
		return one(ta.ATRSeries(highs, lows, closes, ind.Window)), nil
	}

	ref, err := t.Floats(ind.Ref)
	if err != nil {
		return nil, err
	}
	switch ind.Kind {
	case "ratio":
		return one(ta.Ratio(x, ref)), nil
	case "beta":
		return one(ta.BetaSeries(x, ref, ind.Window)), nil
	}
	return nil, invalidf("unknown indicator %q", ind.Kind)
}
