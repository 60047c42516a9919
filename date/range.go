package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Last returns the range of the n days ending on 'on'.
func Last(n int, on Date) Range { return Range{From: on.Add(1 - n), To: on} }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Valid reports whether From is not after To.
func (r Range) Valid() bool { return !r.From.After(r.To) }

// Days returns the number of days in the range.
func (r Range) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.To.time().Sub(r.From.time())/Day) + 1
}

// String formats the range as "from..to".
func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// Identifier compute a unique identifier for the Range.
func (r Range) Identifier() string { return fmt.Sprintf("%s_%s", r.From, r.To) }
