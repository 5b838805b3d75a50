package shared

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the yyyy-MM-dd form used in filters and export names.
const DateLayout = "2006-01-02"

// ErrInvalidDateRange indicates an unparsable or inverted date filter.
var ErrInvalidDateRange = errors.New("date range invalid")

// DateRange is an inclusive date filter. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange reads the from/to filter values. Either bound may be empty.
func ParseDateRange(from, to string) (DateRange, error) {
	var rng DateRange
	var err error
	if rng.From, err = parseDate(from); err != nil {
		return DateRange{}, err
	}
	if rng.To, err = parseDate(to); err != nil {
		return DateRange{}, err
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return DateRange{}, ErrInvalidDateRange
	}
	return rng, nil
}

// ParseDate reads a single yyyy-MM-dd date; empty yields the zero time.
func ParseDate(value string) (time.Time, error) {
	return parseDate(value)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDateRange
	}
	return t, nil
}

// IsZero reports whether both bounds are open.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Single reports whether the range covers exactly one day.
func (r DateRange) Single() bool {
	return !r.From.IsZero() && r.From.Equal(r.To)
}

// FromString formats the lower bound, or "" when open.
func (r DateRange) FromString() string {
	return format(r.From)
}

// ToString formats the upper bound, or "" when open.
func (r DateRange) ToString() string {
	return format(r.To)
}

func format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
