// Package duedate classifies due dates relative to an explicit "now".
package duedate

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Status is the display category for a due date.
type Status string

const (
	StatusPending Status = "pending"
	StatusDueSoon Status = "due_soon"
	StatusOverdue Status = "overdue"
)

// DefaultWindowDays is the due-soon window used when none is configured.
const DefaultWindowDays = 3

// Info describes where a due date sits relative to now.
type Info struct {
	DueDate       *time.Time `json:"dueDate"`
	Status        Status     `json:"status"`
	IsDueToday    bool       `json:"isDueToday"`
	IsOverdue     bool       `json:"isOverdue"`
	DaysRemaining int        `json:"daysRemaining"`
	DaysOverdue   int        `json:"daysOverdue"`
}

// Classifier carries the configured due-soon window.
type Classifier struct {
	WindowDays int
}

// NewClassifier returns a classifier; negative windows are treated as zero.
func NewClassifier(windowDays int) Classifier {
	if windowDays < 0 {
		windowDays = 0
	}
	return Classifier{WindowDays: windowDays}
}

// Classify applies the classifier window.
func (c Classifier) Classify(due *time.Time, now time.Time) Info {
	return Classify(due, now, c.WindowDays)
}

// Classify compares due with now on calendar days in now's location. A zero
// window means only a date due today counts as due soon.
func Classify(due *time.Time, now time.Time, windowDays int) Info {
	if due == nil || due.IsZero() {
		return Info{Status: StatusPending}
	}
	dueCopy := *due
	info := Info{DueDate: &dueCopy}

	diff := DaysBetween(now, dueCopy)
	switch {
	case diff < 0:
		info.Status = StatusOverdue
		info.IsOverdue = true
		info.DaysOverdue = -diff
	case diff == 0:
		info.Status = StatusDueSoon
		info.IsDueToday = true
	case diff <= windowDays:
		info.Status = StatusDueSoon
		info.DaysRemaining = diff
	default:
		info.Status = StatusPending
		info.DaysRemaining = diff
	}
	return info
}

// DaysBetween returns the whole calendar days from a to b, negative when b is
// earlier. Both are compared at midnight in a's location.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	start := midnight(a, loc)
	end := midnight(b.In(loc), loc)
	return int(math.Round(end.Sub(start).Hours() / 24))
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

var layouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDue reads a due date from a raw payload value, reading zone-less
// values as UTC. Malformed or empty values yield nil.
func ParseDue(raw any) *time.Time {
	return ParseDueIn(raw, time.UTC)
}

// ParseDueIn is ParseDue with date-only and zone-less values read in loc, so
// that a calendar date keeps its day when compared against a clock in loc.
func ParseDueIn(raw any, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		out := *v
		return &out
	case string:
		text := strings.TrimSpace(v)
		if text == "" || strings.EqualFold(text, "N/A") {
			return nil
		}
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return &t
			}
		}
	}
	t, err := cast.ToTimeInDefaultLocationE(raw, loc)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}
