package date

import (
	"fmt"
	"strings"
	"time"
)

// Day is the duration of a calendar day.
const Day = 24 * time.Hour

// Period is the sampling interval of a time series.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "1d"
	case Weekly:
		return "1w"
	case Monthly:
		return "1mo"
	default:
		panic(fmt.Sprintf("unknown period %d", int(p)))
	}
}

// ParsePeriod parses an interval name. The empty string is Daily.
func ParsePeriod(p string) (Period, error) {
	switch strings.ToLower(p) {
	case "", "1d", "d", "daily", "day", "1440":
		return Daily, nil
	case "1w", "w", "weekly", "week", "10080":
		return Weekly, nil
	case "1mo", "mo", "monthly", "month", "43200":
		return Monthly, nil
	default:
		return Daily, fmt.Errorf("unknown period %q", p)
	}
}

// StartOf returns the first day of the period containing d. Weeks start on Monday.
func (d Date) StartOf(p Period) Date {
	switch p {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return d.Add(-offset)
	case Monthly:
		return New(d.y, d.m, 1)
	default:
		return d
	}
}

// EndOf returns the last day of the period containing d.
func (d Date) EndOf(p Period) Date {
	switch p {
	case Weekly:
		return d.StartOf(Weekly).Add(6)
	case Monthly:
		return New(d.y, d.m+1, 0)
	default:
		return d
	}
}
