// Package renderer turns tables into markdown for the terminal.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/dataterm"
	md "github.com/nao1215/markdown"
)

// TableOptions controls Table.
type TableOptions struct {
	// Limit is the maximum number of rows shown, 0 means dataterm.DefaultLimit.
	Limit int
	// Columns is the subset of columns shown, in that order. Empty shows all.
	Columns []string
	// Title is an optional heading.
	Title string
}

// Rendering is the result of a presentation.
type Rendering struct {
	Markdown string
	// Rows is the number of rows rendered.
	Rows int
	// Total is the number of rows of the dataset.
	Total int
	// Columns are the rendered column names, in order.
	Columns []string
}

func (r *Rendering) String() string { return r.Markdown }

// Table renders the first rows of t as a markdown table.
// The table is not modified.
func Table(t *dataterm.Table, opts TableOptions) (*Rendering, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = dataterm.DefaultLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", dataterm.ErrInvalidParameters, limit)
	}
	view := t
	if len(opts.Columns) > 0 {
		var err error
		if view, err = t.Select(opts.Columns...); err != nil {
			return nil, err
		}
	}
	view = view.Head(limit)
	columns := view.Columns()

	set := md.TableSet{
		Header:    make([]string, len(columns)),
		Alignment: make([]md.TableAlignment, len(columns)),
		Rows:      make([][]string, 0, view.Len()),
	}
	for j, c := range columns {
		set.Header[j] = escape(c.Name)
		set.Alignment[j] = md.AlignLeft
		if c.Kind.IsNumeric() {
			set.Alignment[j] = md.AlignRight
		}
	}
	for _, row := range view.Rows() {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = escape(FormatCell(columns[j], v))
		}
		set.Rows = append(set.Rows, cells)
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	if opts.Title != "" {
		doc.H2(opts.Title)
	}
	doc.Table(set)
	if view.Len() < t.Len() {
		doc.PlainTextf("%d of %d rows", view.Len(), t.Len())
	}
	return &Rendering{
		Markdown: doc.String(),
		Rows:     view.Len(),
		Total:    t.Len(),
		Columns:  view.Names(),
	}, nil
}
