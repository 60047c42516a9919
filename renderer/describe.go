package renderer

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/etnz/dataterm"
	md "github.com/nao1215/markdown"
)

// Datasets renders the datasets of a store with their size.
func Datasets(store *dataterm.Store) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Datasets")
	if store.Len() == 0 {
		doc.PlainText("No dataset loaded, see `load`.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Name", "Rows", "Columns"},
	}
	for _, name := range store.List() {
		t, err := store.Get(name)
		if err != nil {
			continue
		}
		table.Rows = append(table.Rows, []string{escape(name), strconv.Itoa(t.Len()), strconv.Itoa(t.Width())})
	}
	doc.Table(table)
	return doc.String()
}

// Describe renders the column descriptors of a dataset, with the missing
// value count and the range of numeric columns.
func Describe(name string, t *dataterm.Table) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2f("%s (%d rows)", name, t.Len())
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Column", "Kind", "Role", "Currency", "Missing", "Min", "Max"},
	}
	for j, c := range t.Columns() {
		missing := 0
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range t.Rows() {
			v := row[j]
			if v == nil {
				missing++
				continue
			}
			f, isNum := v.(float64)
			if i, ok := v.(int64); ok {
				f, isNum = float64(i), true
			}
			if !isNum {
				continue
			}
			if math.IsNaN(f) {
				missing++
				continue
			}
			lo, hi = math.Min(lo, f), math.Max(hi, f)
		}
		minCell, maxCell := "", ""
		if c.Kind.IsNumeric() && lo <= hi {
			minCell, maxCell = FormatCell(c, lo), FormatCell(c, hi)
		}
		table.Rows = append(table.Rows, []string{
			escape(c.Name), c.Kind.String(), c.Role.String(), c.Currency,
			strconv.Itoa(missing), minCell, maxCell,
		})
	}
	doc.Table(table)
	return doc.String()
}

// Sources renders the registered sources.
func Sources(sources []dataterm.Source) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H2("Sources")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft},
		Header:    []string{"Source", "Description"},
	}
	for _, s := range sources {
		table.Rows = append(table.Rows, []string{s.Name(), escape(dataterm.Describe(s))})
	}
	doc.Table(table)
	return doc.String()
}

// Indicators renders the indicators available to derive.
func Indicators() string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft},
		Header:    []string{"Indicator", "Description"},
	}
	for _, name := range dataterm.Indicators() {
		table.Rows = append(table.Rows, []string{name, dataterm.IndicatorDescription(name)})
	}
	doc.Table(table)
	return doc.String()
}

// Message renders a one line confirmation.
func Message(format string, args ...any) string {
	return fmt.Sprintf(format, args...) + "\n"
}
