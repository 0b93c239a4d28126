// Package core holds the budgeting domain: months, categories, allocations,
// transactions and the ephemeral structures the rollover engine works on.
package core

import (
	"errors"
	"sort"
	"time"
)

// Month is a calendar month identifier in YYYY-MM form. Months compare and
// sort lexically, which coincides with chronological order, so the type is a
// plain string and range queries can use string bounds directly.
type Month string

var ErrInvalidMonth = errors.New("invalid month")

// ParseMonth validates a YYYY-MM string and returns it as a Month.
func ParseMonth(s string) (Month, error) {
	if len(s) != 7 || s[4] != '-' {
		return "", ErrInvalidMonth
	}
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", ErrInvalidMonth
	}
	return Month(s), nil
}

// StartDate returns the first day of the month as YYYY-MM-DD.
func (m Month) StartDate() string {
	return string(m) + "-01"
}

// EndDate returns the upper bound used for month range queries. Day 31 is a
// valid lexical upper bound even for shorter months: "2026-04-30" <= "2026-04-31"
// holds under string comparison, and no real date in the following month
// sorts below it.
func (m Month) EndDate() string {
	return string(m) + "-31"
}

// Before reports whether m sorts strictly before other.
func (m Month) Before(other Month) bool {
	return m < other
}

func (m Month) String() string {
	return string(m)
}

// MonthOfDate extracts the YYYY-MM prefix of a YYYY-MM-DD date string.
func MonthOfDate(date string) Month {
	if len(date) < 7 {
		return Month(date)
	}
	return Month(date[:7])
}

// ValidDate reports whether a string is a well-formed YYYY-MM-DD date.
func ValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// SortMonths returns the months of a timeline in ascending order.
func SortMonths(months []Month) []Month {
	out := append([]Month(nil), months...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
