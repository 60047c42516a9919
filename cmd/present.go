package cmd

import (
	"context"
	"fmt"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/export"
	"github.com/etnz/dataterm/renderer"
	"github.com/posener/complete/v2/predict"
)

// presentation are the options of every command ending with a dataset.
var presentation = Schema{
	{Flag: "limit", Type: Int, Default: "0", Constraint: "min=0", Usage: "number of rows shown, 0 for the configured limit"},
	{Flag: "sort", Type: String, Usage: "comma separated columns to sort the output on, '-' prefix for descending: volume,-date"},
	{Flag: "reverse", Type: Bool, Usage: "reverse the output order"},
	{Flag: "columns", Type: String, Usage: "comma separated columns to show"},
	{Flag: "export", Type: String, Constraint: "omitempty,oneof=csv json xlsx", Usage: "export every row of the dataset to a csv, json or xlsx file"},
	{Flag: "o", Type: String, Usage: "export file, by default <dataset>_<timestamp>.<format> in the export directory", Predict: predict.Files("*")},
	{Flag: "chart", Type: String, Usage: "comma separated numeric columns to plot instead of the table"},
}

// withPresentation returns s followed by the presentation options.
func withPresentation(s Schema) Schema {
	return append(append(Schema{}, s...), presentation...)
}

// present renders t, the dataset named name, as a table or a chart, and
// exports it when asked. With save, t is stored under name once rendering and
// export succeeded: a command failing there leaves the store unchanged.
func (e *Env) present(ctx context.Context, name string, t *dataterm.Table, save bool) error {
	stored := t
	t, err := e.arrange(ctx, name, t)
	if err != nil {
		return err
	}
	var out *renderer.Rendering
	err = e.Session.Run(ctx, dataterm.StageRender, name, func(context.Context) error {
		if cols := e.Columns("chart"); len(cols) > 0 {
			out, err = renderer.Chart(t, renderer.ChartOptions{Columns: cols, Title: name}, renderer.ASCII{})
			return err
		}
		limit := e.Int("limit")
		if limit == 0 {
			limit = e.Config.Limit
		}
		out, err = renderer.Table(t, renderer.TableOptions{Limit: limit, Columns: e.Columns("columns"), Title: name})
		return err
	})
	if err != nil {
		return err
	}
	if err := e.export(ctx, name, t, e.String("export"), e.String("o")); err != nil {
		return err
	}
	if save {
		if err := e.store(ctx, name, stored); err != nil {
			return err
		}
	}
	if err := e.print(out.Markdown); err != nil {
		return err
	}
	if out.Rows < out.Total {
		fmt.Fprintf(e.Err, "%d of %d rows shown\n", out.Rows, out.Total)
	}
	return nil
}

// arrange applies the presentation sort order to t.
func (e *Env) arrange(ctx context.Context, name string, t *dataterm.Table) (*dataterm.Table, error) {
	by, reverse := e.String("sort"), e.Bool("reverse")
	if by == "" && !reverse {
		return t, nil
	}
	err := e.Session.Run(ctx, dataterm.StageTransform, name, func(context.Context) error {
		keys, err := dataterm.ParseSortKeys(by)
		if err != nil {
			return err
		}
		switch {
		case len(keys) == 0:
			t = dataterm.ReverseRows(t)
		case reverse:
			t, err = dataterm.Sort(t, dataterm.Reverse(keys)...)
		default:
			t, err = dataterm.Sort(t, keys...)
		}
		return err
	})
	return t, err
}

// export writes every row of t in format to dest, or to the default export
// path when dest is empty. An empty format exports nothing.
func (e *Env) export(ctx context.Context, name string, t *dataterm.Table, format, dest string) error {
	if format == "" && dest == "" {
		return nil
	}
	return e.Session.Run(ctx, dataterm.StageExport, name, func(context.Context) error {
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == export.None {
			if f, err = export.FormatOf(dest); err != nil {
				return err
			}
		}
		if dest == "" {
			dest = e.ExportPath(name, string(f))
		}
		if err := export.Write(t, f, dest); err != nil {
			return err
		}
		fmt.Fprintf(e.Err, "exported %d rows to %s\n", t.Len(), dest)
		return nil
	})
}
