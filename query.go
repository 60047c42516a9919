package dataterm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/dataterm/date"
	"github.com/go-playground/validator/v10"
)

// DefaultLimit is the number of rows shown when no limit is given.
const DefaultLimit = 10

// DefaultHistory is the number of days loaded when no start date is given.
const DefaultHistory = 1100

// Query holds the parameters of a load request.
type Query struct {
	// Source is the registered name of the provider to call.
	Source string `validate:"required"`
	// Symbol identifies what to fetch: a ticker, a series id, a file path...
	Symbol string `validate:"required"`
	// Range is the inclusive date range of interest.
	Range date.Range
	// Interval is the sampling period, sources may ignore it.
	Interval string `validate:"omitempty,oneof=1d 1w 1mo"`
	// Limit is the number of rows to present.
	Limit int `validate:"min=1"`
	// Sort keys, applied in order.
	Sort []SortKey `validate:"dive"`
	// Descending reverses the whole sort order.
	Descending bool
	// Filters are source specific options (db=path, exchange=...).
	Filters map[string]string
}

// SortKey is a column to sort on and its direction.
type SortKey struct {
	Column     string `validate:"required"`
	Descending bool
}

func (k SortKey) String() string {
	if k.Descending {
		return "-" + k.Column
	}
	return k.Column
}

// ParseSortKeys parses a comma separated list of columns, where a leading '-'
// sorts the column in descending order: "volume,-date".
func ParseSortKeys(s string) ([]SortKey, error) {
	var keys []SortKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k := SortKey{Column: part}
		if strings.HasPrefix(part, "-") {
			k = SortKey{Column: strings.TrimSpace(part[1:]), Descending: true}
		}
		if k.Column == "" {
			return nil, invalidf("empty sort column in %q", s)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// WithDefaults returns a copy of q where missing values are set: the range
// ends today and spans DefaultHistory days, the interval is daily and the
// limit is DefaultLimit.
func (q Query) WithDefaults(today date.Date) Query {
	if q.Range.To.IsZero() {
		q.Range.To = today
	}
	if q.Range.From.IsZero() {
		q.Range.From = q.Range.To.Add(-DefaultHistory)
	}
	if q.Interval == "" {
		q.Interval = date.Daily.String()
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Filter returns the named source option, or def.
func (q Query) Filter(name, def string) string {
	if v, ok := q.Filters[name]; ok {
		return v
	}
	return def
}

// Validate checks q against its declared constraints.
func (q Query) Validate() error { return validateStruct(q) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		q := sl.Current().Interface().(Query)
		if !q.Range.Valid() {
			sl.ReportError(q.Range, "Range", "Range", "daterange", q.Range.String())
		}
	}, Query{})
	return v
}

func validateStruct(s any) error {
	return validationError(validate.Struct(s))
}

// ValidateVar checks a single value against a validator tag such as
// "min=1" or "oneof=csv json xlsx". name is used in the error message.
func ValidateVar(name string, value any, tag string) error {
	if err := validationError(validate.Var(value, tag)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// validationError turns validator errors into ErrInvalidParameters.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidf("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return invalidf("%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if field == "" {
		field = "value"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "daterange":
		return fmt.Sprintf("start must not be after end (%s)", fe.Param())
	default:
		return fmt.Sprintf("%s fails %q (got %v)", field, fe.Tag(), fe.Value())
	}
}
