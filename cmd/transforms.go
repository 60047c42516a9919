package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/renderer"
	"github.com/posener/complete/v2/predict"
)

// transform runs f on the dataset named by args, then presents the result and
// stores it under -into or the same name.
func (e *Env) transform(ctx context.Context, args []string, f func(t *dataterm.Table) (*dataterm.Table, error)) error {
	name, t, err := e.dataset(args)
	if err != nil {
		return err
	}
	err = e.Session.Run(ctx, dataterm.StageTransform, name, func(context.Context) error {
		t, err = f(t)
		return err
	})
	if err != nil {
		return err
	}
	if into := e.String("into"); into != "" {
		name = into
	}
	return e.present(ctx, name, t, true)
}

var into = Option{Flag: "into", Type: String, Constraint: "omitempty,max=64", Usage: "store the result under this name instead of replacing the dataset"}

type sortCmd struct{}

func (*sortCmd) Name() string     { return "sort" }
func (*sortCmd) Synopsis() string { return "sort a dataset" }
func (*sortCmd) Usage() string {
	return `dterm sort -by <cols> [-into <name>] <name>

  Sorts a dataset on one or more columns. A '-' prefix sorts a column in
  descending order. The sort is stable and missing values come last.

Usage Examples:
$ dterm sort -by -volume AAPL.US
$ dterm sort -by sector,-close -into RANKED STOCKS
`
}

func (*sortCmd) Schema() Schema {
	return withPresentation(Schema{
		{Flag: "by", Type: String, Constraint: "required", Usage: "comma separated columns, '-' prefix for descending"},
		into,
	})
}

func (*sortCmd) Run(ctx context.Context, e *Env, args []string) error {
	keys, err := dataterm.ParseSortKeys(e.String("by"))
	if err != nil {
		return dataterm.AtStage(dataterm.StageValidate, err)
	}
	return e.transform(ctx, args, func(t *dataterm.Table) (*dataterm.Table, error) {
		return dataterm.Sort(t, keys...)
	})
}

type filterCmd struct{}

func (*filterCmd) Name() string     { return "filter" }
func (*filterCmd) Synopsis() string { return "keep the rows of a dataset matching predicates" }
func (*filterCmd) Usage() string {
	return `dterm filter -where <predicate>... [-into <name>] <name>

  Keeps the rows matching every predicate. Predicates compare a column to a
  value: col=v, col!=v, col>v, col>=v, col<v, col<=v, and col~v for a
  substring. Category comparisons ignore case. No matching row is an empty
  dataset, not an error.

Usage Examples:
$ dterm filter -where "close>180" -where "date>=2024-01-05" AAPL.US
$ dterm filter -where "command=dividend" -into DIVIDENDS LEDGER
`
}

func (*filterCmd) Schema() Schema {
	return withPresentation(Schema{
		{Flag: "where", Type: List, Constraint: "required", Usage: "predicate, repeatable"},
		into,
	})
}

func (*filterCmd) Run(ctx context.Context, e *Env, args []string) error {
	where := e.List("where")
	if len(where) == 0 {
		return dataterm.AtStage(dataterm.StageValidate, fmt.Errorf("%w: -where is required", dataterm.ErrInvalidParameters))
	}
	preds, err := dataterm.ParsePredicates(where)
	if err != nil {
		return dataterm.AtStage(dataterm.StageValidate, err)
	}
	return e.transform(ctx, args, func(t *dataterm.Table) (*dataterm.Table, error) {
		return dataterm.Filter(t, preds...)
	})
}

type deriveCmd struct{}

func (*deriveCmd) Name() string     { return "derive" }
func (*deriveCmd) Synopsis() string { return "add indicator columns to a dataset" }
func (*deriveCmd) Usage() string {
	return `dterm derive -indicator <kind> [-column <col>] [-window N] [-scalar K] [-period P] [-ref <col>] [-as <col>] <name>

  Computes an indicator on a column and appends the result as derived
  columns. Deriving again replaces the derived columns. See 'dterm
  indicators' for the list and 'dterm topic indicators' for the details.

Usage Examples:
$ dterm derive -indicator sma -window 20 AAPL.US
$ dterm derive -indicator beta -column close -ref index -window 60 PAIR
`
}

func (*deriveCmd) Schema() Schema {
	return withPresentation(Schema{
		{Flag: "indicator", Type: String, Constraint: "required,oneof=" + strings.Join(dataterm.Indicators(), " "), Usage: "indicator kind"},
		{Flag: "column", Type: String, Usage: "input column, close by default"},
		{Flag: "window", Type: Int, Constraint: "min=0", Usage: "rolling window, 0 for the indicator default"},
		{Flag: "scalar", Type: Float, Constraint: "min=0", Usage: "band width of bbands in standard deviations"},
		{Flag: "period", Type: Int, Constraint: "min=0", Usage: "seasonal period of diff"},
		{Flag: "ref", Type: String, Usage: "reference column of ratio and beta"},
		{Flag: "as", Type: String, Usage: "output column name or prefix"},
		into,
	})
}

func (*deriveCmd) Run(ctx context.Context, e *Env, args []string) error {
	ind := dataterm.Indicator{
		Kind:   e.String("indicator"),
		Column: e.String("column"),
		Window: e.Int("window"),
		Scalar: e.Float("scalar"),
		Period: e.Int("period"),
		Ref:    e.String("ref"),
		As:     e.String("as"),
	}
	return e.transform(ctx, args, func(t *dataterm.Table) (*dataterm.Table, error) {
		return dataterm.Derive(t, ind)
	})
}

type chartCmd struct{}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "plot columns of a dataset" }
func (*chartCmd) Usage() string {
	return `dterm chart -columns <cols> [-x <col>] [-height H] [-width W] <name>

  Plots numeric columns of a dataset as an ASCII line chart. The horizontal
  axis is labelled with the first date column, or -x.
`
}

func (*chartCmd) Schema() Schema {
	return Schema{
		{Flag: "columns", Type: String, Constraint: "required", Usage: "comma separated numeric columns"},
		{Flag: "x", Type: String, Usage: "column labelling the horizontal axis"},
		{Flag: "height", Type: Int, Default: "15", Constraint: "min=0", Usage: "plot height in lines"},
		{Flag: "width", Type: Int, Constraint: "min=0", Usage: "plot width in characters, 0 for one per row"},
	}
}

func (*chartCmd) Run(ctx context.Context, e *Env, args []string) error {
	name, t, err := e.dataset(args)
	if err != nil {
		return err
	}
	opts := renderer.ChartOptions{
		X:       e.String("x"),
		Columns: e.Columns("columns"),
		Height:  e.Int("height"),
		Width:   e.Int("width"),
		Title:   name,
	}
	var out *renderer.Rendering
	err = e.Session.Run(ctx, dataterm.StageRender, name, func(context.Context) error {
		out, err = renderer.Chart(t, opts, renderer.ASCII{})
		return err
	})
	if err != nil {
		return err
	}
	return e.print(out.Markdown)
}

type exportCmd struct{}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a dataset to a file" }
func (*exportCmd) Usage() string {
	return `dterm export -format csv|json|xlsx [-o <path>] <name>

  Writes every row of a dataset to a file. The file is written next to its
  destination then renamed, so that an existing file is never left half
  written. The default destination is <name>_<timestamp>.<format> in the
  export directory.
`
}

func (*exportCmd) Schema() Schema {
	return Schema{
		{Flag: "format", Type: String, Constraint: "required,oneof=csv json xlsx", Usage: "file format"},
		{Flag: "o", Type: String, Usage: "destination file", Predict: predict.Files("*")},
	}
}

func (*exportCmd) Run(ctx context.Context, e *Env, args []string) error {
	name, t, err := e.dataset(args)
	if err != nil {
		return err
	}
	return e.export(ctx, name, t, e.String("format"), e.String("o"))
}
