// Package localfile is the source for csv, json and xlsx files, such as the
// files written by exports.
package localfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/export"
)

// Name of the source.
const Name = "file"

// Source reads local files. The symbol is the file path, the format is given
// by its extension. When the file has a "date" column, rows out of the query
// range are dropped unless the "range" filter is "all".
type Source struct{}

// New returns a file source.
func New() *Source { return &Source{} }

func (*Source) Name() string { return Name }

func (*Source) Description() string {
	return "csv, json or xlsx file, column kinds are inferred"
}

// Fetch implements dataterm.Source.
func (*Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	if _, err := export.FormatOf(q.Symbol); err != nil {
		return nil, err
	}
	if _, err := os.Stat(q.Symbol); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no file %q", dataterm.ErrInvalidParameters, q.Symbol)
	}
	t, err := export.Read(q.Symbol)
	if err != nil {
		return nil, err
	}
	if q.Filter("range", "") == "all" {
		return t, nil
	}
	if _, c, err := t.Column("date"); err != nil || c.Kind != dataterm.KindDate {
		return t, nil
	}
	return dataterm.Filter(t,
		dataterm.Predicate{Column: "date", Op: dataterm.OpGe, Value: q.Range.From.String()},
		dataterm.Predicate{Column: "date", Op: dataterm.OpLe, Value: q.Range.To.String()},
	)
}
