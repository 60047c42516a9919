package dataterm

import (
	"slices"
)

// Sort returns a copy of t sorted on keys. The sort is stable: rows with equal
// keys keep their relative order. Missing values sort last whatever the direction.
func Sort(t *Table, keys ...SortKey) (*Table, error) {
	type resolved struct {
		pos  int
		desc bool
	}
	cols := make([]resolved, len(keys))
	for i, k := range keys {
		j, _, err := t.Column(k.Column)
		if err != nil {
			return nil, err
		}
		cols[i] = resolved{j, k.Descending}
	}

	out := t.Clone()
	slices.SortStableFunc(out.rows, func(a, b []any) int {
		for _, c := range cols {
			x, y := a[c.pos], b[c.pos]
			mx, my := isMissing(x), isMissing(y)
			switch {
			case mx && my:
				continue
			case mx:
				return 1
			case my:
				return -1
			}
			r := compareValues(x, y)
			if c.desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	})
	return out, nil
}

// Reverse flips the direction of every key.
func Reverse(keys []SortKey) []SortKey {
	out := make([]SortKey, len(keys))
	for i, k := range keys {
		out[i] = SortKey{Column: k.Column, Descending: !k.Descending}
	}
	return out
}

// Filter returns a copy of t with the rows matching all predicates.
// No match is an empty table, not an error.
func Filter(t *Table, preds ...Predicate) (*Table, error) {
	matchers := make([]func([]any) bool, len(preds))
	for i, p := range preds {
		m, err := p.compile(t)
		if err != nil {
			return nil, err
		}
		matchers[i] = m
	}
	out := t.Empty()
rows:
	for _, row := range t.rows {
		for _, match := range matchers {
			if !match(row) {
				continue rows
			}
		}
		out.rows = append(out.rows, append([]any(nil), row...))
	}
	return out, nil
}

// Derive returns a copy of t with the indicator columns appended.
// t is not modified.
func Derive(t *Table, ind Indicator) (*Table, error) {
	ind, err := ind.withDefaults(t)
	if err != nil {
		return nil, err
	}
	cols, err := ind.compute(t)
	if err != nil {
		return nil, err
	}
	out := t
	for _, c := range cols {
		values := make([]any, len(c.values))
		for i, v := range c.values {
			values[i] = v
		}
		out, err = out.withColumn(Column{Name: c.name, Kind: KindFloat, Role: RoleDerived, Currency: c.currency}, values)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReverseRows returns a copy of t with its rows in reverse order.
func ReverseRows(t *Table) *Table {
	out := t.Clone()
	slices.Reverse(out.rows)
	return out
}
