package dataterm

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindCategory Kind = iota // string values
	KindDate                 // date.Date values
	KindFloat                // float64 values, NaN is missing
	KindInteger              // int64 values
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	default:
		return "category"
	}
}

// IsNumeric reports whether values of this kind can be read as floats.
func (k Kind) IsNumeric() bool { return k == KindFloat || k == KindInteger }

// Role tells how a column participates in a dataset.
type Role int

const (
	RoleMeasure    Role = iota // a value observed from the source
	RoleIdentifier             // identifies a row (date, ticker, ...)
	RoleDerived                // computed by a transform
)

func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleDerived:
		return "derived"
	default:
		return "measure"
	}
}

// Column describes a column of a Table.
type Column struct {
	Name string
	Kind Kind
	Role Role
	// Currency is the ISO 4217 code of monetary values, if any.
	Currency string
}

// Date returns an identifier date column.
func Date(name string) Column { return Column{Name: name, Kind: KindDate, Role: RoleIdentifier} }

// Float returns a float measure column.
func Float(name string) Column { return Column{Name: name, Kind: KindFloat} }

// Integer returns an integer measure column.
func Integer(name string) Column { return Column{Name: name, Kind: KindInteger} }

// Category returns a categorical identifier column.
func Category(name string) Column {
	return Column{Name: name, Kind: KindCategory, Role: RoleIdentifier}
}

// Money returns a float measure column holding amounts in currency cur.
func Money(name, cur string) Column {
	return Column{Name: name, Kind: KindFloat, Currency: strings.ToUpper(cur)}
}

func (c Column) String() string {
	if c.Currency != "" {
		return fmt.Sprintf("%s %s(%s) %s", c.Name, c.Kind, c.Currency, c.Role)
	}
	return fmt.Sprintf("%s %s %s", c.Name, c.Kind, c.Role)
}
