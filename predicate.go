package dataterm

import (
	"fmt"
	"strings"
)

// Op is a comparison operator of a filter predicate.
type Op string

const (
	OpEq       Op = "="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpGe       Op = ">="
	OpLt       Op = "<"
	OpLe       Op = "<="
	OpContains Op = "~"
)

// Predicate selects rows by comparing a column to a value.
type Predicate struct {
	Column string
	Op     Op
	Value  string
}

func (p Predicate) String() string { return p.Column + string(p.Op) + p.Value }

// ParsePredicate parses "column<op>value" where op is one of
// = != > >= < <= ~.
func ParsePredicate(s string) (Predicate, error) {
	i := strings.IndexAny(s, "=!<>~")
	if i <= 0 {
		return Predicate{}, invalidf("invalid predicate %q, want column<op>value", s)
	}
	op := Op(s[i : i+1])
	if i+1 < len(s) && s[i+1] == '=' && strings.ContainsRune("!<>", rune(s[i])) {
		op = Op(s[i : i+2])
	}
	if op == "!" {
		return Predicate{}, invalidf("invalid operator in %q", s)
	}
	p := Predicate{
		Column: strings.TrimSpace(s[:i]),
		Op:     op,
		Value:  strings.TrimSpace(s[i+len(op):]),
	}
	if p.Column == "" {
		return Predicate{}, invalidf("missing column in %q", s)
	}
	return p, nil
}

// ParsePredicates parses every string with ParsePredicate.
func ParsePredicates(list []string) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(list))
	for _, s := range list {
		p, err := ParsePredicate(s)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// compile resolves the predicate against a table schema and returns a row matcher.
func (p Predicate) compile(t *Table) (func(row []any) bool, error) {
	j, c, err := t.Column(p.Column)
	if err != nil {
		return nil, err
	}

	if p.Op == OpContains {
		needle := strings.ToLower(p.Value)
		return func(row []any) bool {
			if isMissing(row[j]) {
				return false
			}
			return strings.Contains(strings.ToLower(fmt.Sprint(row[j])), needle)
		}, nil
	}

	if c.Kind == KindCategory {
		return func(row []any) bool {
			v, ok := row[j].(string)
			if !ok {
				return false
			}
			return p.Op.holds(strings.Compare(strings.ToLower(v), strings.ToLower(p.Value)))
		}, nil
	}

	kind := c.Kind
	if kind == KindInteger {
		// integer columns compare against any number
		kind = KindFloat
	}
	threshold, err := Coerce(kind, p.Value)
	if err != nil || isMissing(threshold) {
		return nil, invalidf("predicate %q: %q is not a valid %s", p, p.Value, c.Kind)
	}
	return func(row []any) bool {
		v := row[j]
		if isMissing(v) {
			return false
		}
		if c.Kind == KindInteger {
			v = toFloat(v)
		}
		return p.Op.holds(compareValues(v, threshold))
	}, nil
}

// holds reports whether the operator accepts a comparison result.
func (op Op) holds(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	}
	return false
}
