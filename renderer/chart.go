package renderer

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/guptarohit/asciigraph"
	md "github.com/nao1215/markdown"
)

// ChartOptions controls Chart.
type ChartOptions struct {
	// X is the column labelling the horizontal axis, the first date column by default.
	X string
	// Columns are the numeric columns to plot.
	Columns []string
	// Height and Width of the plot in characters, 0 lets the charter decide.
	Height int
	Width  int
	Title  string
}

// Series is a named list of values to plot.
type Series struct {
	Name   string
	Values []float64
}

// Charter draws series as text.
type Charter interface {
	Plot(series []Series, opts ChartOptions) (string, error)
}

// ASCII is the default Charter, it draws line charts with asciigraph.
type ASCII struct{}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Default, asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Magenta,
}

func (ASCII) Plot(series []Series, opts ChartOptions) (string, error) {
	data := make([][]float64, len(series))
	colors := make([]asciigraph.AnsiColor, len(series))
	for i, s := range series {
		data[i] = s.Values
		colors[i] = seriesColors[i%len(seriesColors)]
	}
	options := []asciigraph.Option{asciigraph.Precision(2)}
	if opts.Height > 0 {
		options = append(options, asciigraph.Height(opts.Height))
	}
	if opts.Width > 0 {
		options = append(options, asciigraph.Width(opts.Width))
	}
	if len(series) > 1 {
		options = append(options, asciigraph.SeriesColors(colors...))
	}
	return asciigraph.PlotMany(data, options...), nil
}

// Chart plots numeric columns of t with charter, or with ASCII when nil.
// The table is not modified.
func Chart(t *dataterm.Table, opts ChartOptions, charter Charter) (*Rendering, error) {
	if charter == nil {
		charter = ASCII{}
	}
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("%w: no column to chart", dataterm.ErrInvalidParameters)
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: no row to chart", dataterm.ErrEmptyResult)
	}

	series := make([]Series, 0, len(opts.Columns))
	for _, name := range opts.Columns {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		if allMissing(values) {
			return nil, fmt.Errorf("%w: column %q has no value", dataterm.ErrEmptyResult, name)
		}
		series = append(series, Series{Name: name, Values: values})
	}

	if opts.X == "" {
		for _, c := range t.Columns() {
			if c.Kind == dataterm.KindDate {
				opts.X = c.Name
				break
			}
		}
	}
	axis := ""
	if opts.X != "" {
		j, c, err := t.Column(opts.X)
		if err != nil {
			return nil, err
		}
		first, last := t.Row(0)[j], t.Row(t.Len()-1)[j]
		axis = fmt.Sprintf("%s: %s .. %s", opts.X, FormatCell(c, first), FormatCell(c, last))
	}

	plot, err := charter.Plot(series, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: chart: %v", dataterm.ErrInvalidParameters, err)
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	if opts.Title != "" {
		doc.H2(opts.Title)
	}
	doc.PlainText("```\n" + plot + "\n```")
	var legend []string
	for i, s := range series {
		legend = append(legend, fmt.Sprintf("%d. %s", i+1, s.Name))
	}
	if axis != "" {
		legend = append(legend, axis)
	}
	doc.PlainText(strings.Join(legend, "  \n"))
	return &Rendering{
		Markdown: doc.String(),
		Rows:     t.Len(),
		Total:    t.Len(),
		Columns:  opts.Columns,
	}, nil
}

func allMissing(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
