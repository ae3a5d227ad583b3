package caldate

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode"
)

var (
	ErrUnparsable = errors.New("caldate: unparsable date")
)

// Date is a calendar day with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New validates the calendar triple against the Gregorian calendar.
func New(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d does not exist", ErrUnparsable, year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// Parse accepts dd-MM-yyyy, ISO 8601 (yyyy-MM-dd with optional THH:mm[:ss]) and
// dd-MM-yyyyTHH:mm. The first three numeric groups form the date: the 4-digit
// group is always the year; of the remaining two, a value above 12 is the day;
// when both fit a month the first-appearing group is taken as the day.
// Day-first on ambiguous input is the documented contract, not a locale guess.
func Parse(input string) (Date, error) {
	groups := numericGroups(input)
	if len(groups) < 3 {
		return Date{}, fmt.Errorf("%w: %q has fewer than 3 numeric groups", ErrUnparsable, input)
	}
	groups = groups[:3]

	yearIdx := -1
	for i, g := range groups {
		if len(g.text) == 4 {
			yearIdx = i
			break
		}
	}
	if yearIdx < 0 {
		return Date{}, fmt.Errorf("%w: %q has no 4-digit year group", ErrUnparsable, input)
	}
	year := groups[yearIdx].value

	rest := make([]int, 0, 2)
	for i, g := range groups {
		if i != yearIdx {
			rest = append(rest, g.value)
		}
	}

	var day, month int
	switch {
	case rest[0] > 12:
		day, month = rest[0], rest[1]
	case rest[1] > 12:
		day, month = rest[1], rest[0]
	default:
		day, month = rest[0], rest[1]
	}
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: %q month out of range", ErrUnparsable, input)
	}
	return New(year, time.Month(month), day)
}

type group struct {
	text  string
	value int
}

func numericGroups(s string) []group {
	var out []group
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, makeGroup(s[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, makeGroup(s[start:]))
	}
	return out
}

func makeGroup(text string) group {
	v, _ := strconv.Atoi(text)
	return group{text: text, value: v}
}

// Format emits the canonical dd-MM-yyyy form. Parse(Format(d)) == d for every
// valid Date because Format is day-first and Parse resolves ambiguity day-first.
func (d Date) Format() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) String() string { return d.Format() }

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool { return d.midnight().Before(other.midnight()) }

func (d Date) After(other Date) bool { return d.midnight().After(other.midnight()) }

func (d Date) Equal(other Date) bool { return d == other }

// DaysBetween returns the whole-day distance from d to other (other - d).
func DaysBetween(d, other Date) int {
	return int(other.midnight().Sub(d.midnight()).Hours() / 24)
}

// AddDays returns the date n whole days after d (before, for negative n).
func (d Date) AddDays(n int) Date {
	t := d.midnight().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// AddMonths returns the date n calendar months after d.
func (d Date) AddMonths(n int) Date {
	t := d.midnight().AddDate(0, n, 0)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// AddYears returns the date n calendar years after d.
func (d Date) AddYears(n int) Date {
	t := d.midnight().AddDate(n, 0, 0)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// FromTime truncates a timestamp to its calendar day in the timestamp's location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current calendar day in the given location. Completed-status
// projection compares end dates against this with strict less-than.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}
