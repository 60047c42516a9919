package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/etnz/dataterm/eodhd"
	"github.com/etnz/dataterm/insee"
	"github.com/etnz/dataterm/ledger"
	"github.com/etnz/dataterm/localfile"
	"github.com/etnz/dataterm/news"
	"github.com/etnz/dataterm/onchain"
	"github.com/etnz/dataterm/renderer"
	"github.com/etnz/dataterm/sqlite"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var sourceNames = predict.Set{eodhd.Name, insee.Name, onchain.Name, news.Name, ledger.Name, sqlite.Name, localfile.Name}

type loadCmd struct{}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load a dataset from a source" }
func (*loadCmd) Usage() string {
	return `dterm load [-source <source>] [-start <date>] [-end <date>] [-interval 1d|1w|1mo] [-name <name>] [-filter key=value]... <symbol>

  Fetches <symbol> from a source and stores the result as a dataset named
  after the upper-cased symbol, or -name. A previous dataset with the same
  name is replaced. The range defaults to the last 1100 days.

  Use 'dterm sources' to list the sources and 'dterm topic dates' for the
  date formats.

Usage Examples:
$ dterm load AAPL.US
$ dterm load -source insee -start 2020-01-01 -name CPI 001759970
$ dterm load -source sqlite -filter db=prices.db -name HIGH "SELECT * FROM prices WHERE close > 100"
`
}

func (*loadCmd) Schema() Schema {
	return withPresentation(Schema{
		{Flag: "source", Type: String, Default: eodhd.Name, Constraint: "required", Usage: "source to load from", Predict: sourceNames},
		{Flag: "start", Type: String, Usage: "first day of the range"},
		{Flag: "end", Type: String, Usage: "last day of the range, today by default"},
		{Flag: "interval", Type: String, Constraint: "omitempty,oneof=1d 1w 1mo", Usage: "sampling interval"},
		{Flag: "name", Type: String, Constraint: "omitempty,max=64", Usage: "dataset name, the upper-cased symbol by default"},
		{Flag: "filter", Type: List, Constraint: "contains==", Usage: "source option key=value, repeatable"},
	})
}

func (*loadCmd) Args() complete.Predictor { return predict.Files("*") }

func (c *loadCmd) Run(ctx context.Context, e *Env, args []string) error {
	q, err := c.query(e, args)
	if err != nil {
		return dataterm.AtStage(dataterm.StageValidate, err)
	}
	name := e.String("name")
	if name == "" {
		if name, err = dataterm.DatasetName(q.Symbol); err != nil {
			return dataterm.AtStage(dataterm.StageValidate, err)
		}
	}
	var t *dataterm.Table
	err = e.Session.Run(ctx, dataterm.StageLoad, name, func(ctx context.Context) error {
		t, err = e.Loader.Fetch(ctx, q)
		return err
	})
	if err != nil {
		return err
	}
	return e.present(ctx, name, t, true)
}

// query builds the load query from the options.
func (*loadCmd) query(e *Env, args []string) (dataterm.Query, error) {
	if len(args) != 1 {
		return dataterm.Query{}, fmt.Errorf("%w: want one symbol, got %d arguments", dataterm.ErrInvalidParameters, len(args))
	}
	q := dataterm.Query{
		Source:     e.String("source"),
		Symbol:     args[0],
		Interval:   e.String("interval"),
		Limit:      e.Int("limit"),
		Descending: e.Bool("reverse"),
	}
	var err error
	if q.Range.From, err = parseDate("start", e.String("start")); err != nil {
		return q, err
	}
	if q.Range.To, err = parseDate("end", e.String("end")); err != nil {
		return q, err
	}
	if q.Sort, err = dataterm.ParseSortKeys(e.String("sort")); err != nil {
		return q, err
	}
	for _, kv := range e.List("filter") {
		k, v, _ := strings.Cut(kv, "=")
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return q, nil
}

// parseDate parses an optional date option, empty is the zero date.
func parseDate(name, s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return d, fmt.Errorf("%w: -%s: %v", dataterm.ErrInvalidParameters, name, err)
	}
	return d, nil
}

type showCmd struct{}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "present a loaded dataset" }
func (*showCmd) Usage() string {
	return `dterm show [-limit N] [-sort cols] [-columns cols] [-chart cols] [-export fmt] <name>

  Presents a dataset of the session as a table, or a chart with -chart.
`
}
func (*showCmd) Schema() Schema { return withPresentation(nil) }

func (*showCmd) Run(ctx context.Context, e *Env, args []string) error {
	name, t, err := e.dataset(args)
	if err != nil {
		return err
	}
	return e.present(ctx, name, t, false)
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the loaded datasets" }
func (*listCmd) Usage() string {
	return `dterm list

  Lists the datasets of the session with their size.
`
}
func (*listCmd) Schema() Schema { return nil }

func (*listCmd) Run(_ context.Context, e *Env, _ []string) error {
	return e.print(renderer.Datasets(e.Store))
}

type describeCmd struct{}

func (*describeCmd) Name() string     { return "describe" }
func (*describeCmd) Synopsis() string { return "describe the columns of a dataset" }
func (*describeCmd) Usage() string {
	return `dterm describe <name>

  Shows the columns of a dataset: kind, role, currency and missing values.
`
}
func (*describeCmd) Schema() Schema { return nil }

func (*describeCmd) Run(_ context.Context, e *Env, args []string) error {
	name, t, err := e.dataset(args)
	if err != nil {
		return err
	}
	return e.print(renderer.Describe(name, t))
}

type unloadCmd struct{}

func (*unloadCmd) Name() string     { return "unload" }
func (*unloadCmd) Synopsis() string { return "remove a dataset from the session" }
func (*unloadCmd) Usage() string {
	return `dterm unload <name>
`
}
func (*unloadCmd) Schema() Schema { return nil }

func (*unloadCmd) Run(ctx context.Context, e *Env, args []string) error {
	if len(args) != 1 {
		return dataterm.AtStage(dataterm.StageValidate, fmt.Errorf("%w: want one dataset name", dataterm.ErrInvalidParameters))
	}
	err := e.Session.Run(ctx, dataterm.StageStore, args[0], func(context.Context) error {
		return e.Store.Delete(args[0])
	})
	if err != nil {
		return err
	}
	return e.print(renderer.Message("%s unloaded", args[0]))
}
