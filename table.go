package dataterm

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// Table is an ordered list of rows sharing a fixed column schema.
//
// Cells hold date.Date, float64, int64 or string values depending on the
// column Kind, nil is a missing value of any kind and NaN is also a missing
// float.
//
// A Table returned by the Store must be treated as read-only: transforms
// build new tables instead.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]any
}

// NewTable returns an empty table with the given columns.
// Column names must be non empty and unique.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if err := t.addColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is meant for static schemas.
func MustTable(columns ...Column) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

func (t *Table) addColumn(c Column) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalidf("empty column name")
	}
	if _, exists := t.index[c.Name]; exists {
		return invalidf("duplicate column %q", c.Name)
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns a copy of the column descriptors, in order.
func (t *Table) Columns() []Column { return append([]Column(nil), t.columns...) }

// Names returns the column names, in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the position and descriptor of the named column.
func (t *Table) Column(name string) (int, Column, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, Column{}, fmt.Errorf("%w: %q (have %s)", ErrUnknownColumn, name, strings.Join(t.Names(), ", "))
	}
	return i, t.columns[i], nil
}

// Has reports whether the table has a column with that name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Append adds a row. Values are converted to the column kinds, see Coerce.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return invalidf("row has %d values for %d columns", len(values), len(t.columns))
	}
	row := make([]any, len(values))
	for i, v := range values {
		cv, err := Coerce(t.columns[i].Kind, v)
		if err != nil {
			return fmt.Errorf("column %q: %w", t.columns[i].Name, err)
		}
		row[i] = cv
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) []any { return append([]any(nil), t.rows[i]...) }

// Rows iterates over the rows. The yielded slices must not be modified.
func (t *Table) Rows() iter.Seq2[int, []any] {
	return func(yield func(int, []any) bool) {
		for i, row := range t.rows {
			if !yield(i, row) {
				return
			}
		}
	}
}

// Value returns the cell of row i in the named column.
func (t *Table) Value(i int, name string) (any, error) {
	j, _, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return t.rows[i][j], nil
}

// Floats returns the named numeric column as floats, missing values are NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	j, c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.Kind.IsNumeric() {
		return nil, invalidf("column %q is %s, not numeric", name, c.Kind)
	}
	values := make([]float64, len(t.rows))
	for i, row := range t.rows {
		values[i] = toFloat(row[j])
	}
	return values, nil
}

// Clone returns a copy of the table sharing no mutable state with t.
func (t *Table) Clone() *Table {
	c := t.Empty()
	c.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		c.rows[i] = append([]any(nil), row...)
	}
	return c
}

// Empty returns a table with the same schema and no rows.
func (t *Table) Empty() *Table {
	c := &Table{
		columns: append([]Column(nil), t.columns...),
		index:   make(map[string]int, len(t.index)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// Head returns a table with the first n rows at most.
func (t *Table) Head(n int) *Table {
	c := t.Empty()
	n = min(max(n, 0), len(t.rows))
	c.rows = append(c.rows, t.rows[:n]...)
	return c
}

// Select returns a table restricted to the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	positions := make([]int, len(names))
	columns := make([]Column, len(names))
	for k, name := range names {
		i, c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		positions[k], columns[k] = i, c
	}
	s, err := NewTable(columns...)
	if err != nil {
		return nil, err
	}
	s.rows = make([][]any, len(t.rows))
	for r, row := range t.rows {
		projected := make([]any, len(positions))
		for k, i := range positions {
			projected[k] = row[i]
		}
		s.rows[r] = projected
	}
	return s, nil
}

// withColumn returns a copy of t with column c set to values. An existing
// derived column with the same name is replaced in place.
func (t *Table) withColumn(c Column, values []any) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, invalidf("column %q has %d values for %d rows", c.Name, len(values), len(t.rows))
	}
	out := t.Clone()
	j, exists := out.index[c.Name]
	if exists {
		if out.columns[j].Role != RoleDerived {
			return nil, invalidf("column %q already exists and is not derived", c.Name)
		}
		out.columns[j] = c
	} else {
		if err := out.addColumn(c); err != nil {
			return nil, err
		}
		j = len(out.columns) - 1
	}
	for i := range out.rows {
		v, err := Coerce(c.Kind, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		if exists {
			out.rows[i][j] = v
		} else {
			out.rows[i] = append(out.rows[i], v)
		}
	}
	return out, nil
}

// Coerce converts v to the canonical Go type of kind k.
func Coerce(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindDate:
		switch x := v.(type) {
		case date.Date:
			return x, nil
		case time.Time:
			return date.FromTime(x), nil
		case string:
			if x == "" {
				return nil, nil
			}
			d, err := date.Parse(x)
			if err != nil {
				return nil, invalidf("%v", err)
			}
			return d, nil
		}
	case KindFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case decimal.Decimal:
			return x.InexactFloat64(), nil
		case string:
			if x == "" {
				return math.NaN(), nil
			}
			d, err := decimal.NewFromString(x)
			if err != nil {
				return nil, invalidf("invalid number %q", x)
			}
			return d.InexactFloat64(), nil
		}
	case KindInteger:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case float64:
			if math.IsNaN(x) {
				return nil, nil
			}
			if x != math.Trunc(x) {
				return nil, invalidf("%v is not an integer", x)
			}
			return int64(x), nil
		case decimal.Decimal:
			return x.IntPart(), nil
		case string:
			if x == "" {
				return nil, nil
			}
			d, err := decimal.NewFromString(x)
			if err != nil || !d.IsInteger() {
				return nil, invalidf("invalid integer %q", x)
			}
			return d.IntPart(), nil
		}
	case KindCategory:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		}
	}
	return nil, invalidf("cannot use %v (%T) as %s", v, v, k)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return math.NaN()
	}
}

// isMissing reports whether v is a missing value.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// compareValues orders two non missing cells of the same kind.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case date.Date:
		return x.Compare(b.(date.Date))
	case float64:
		return cmp.Compare(x, b.(float64))
	case int64:
		return cmp.Compare(x, b.(int64))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}
