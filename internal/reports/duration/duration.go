// Package duration converts the loosely formatted duration values found in
// report payloads into fractional hours.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// MinuteCutoff is the magnitude below which a bare number is read as minutes.
// Values at or above it are read as hours.
const MinuteCutoff = 100

var (
	hoursMinutesPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*h(?:ours?|rs?)?\s*(\d+(?:\.\d+)?)\s*m`)
	hoursPattern        = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*h`)
	minutesPattern      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m`)
	barePattern         = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
)

// ParseHours returns the duration in hours for "2h 30m", "2h", "30m" or a bare
// number. Anything it cannot read yields 0.
func ParseHours(input any) float64 {
	switch v := input.(type) {
	case nil, bool:
		return 0
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	}
	n, err := cast.ToFloat64E(input)
	if err != nil {
		return 0
	}
	return fromBare(n)
}

func parseText(raw string) float64 {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0
	}
	if m := hoursMinutesPattern.FindStringSubmatch(text); m != nil {
		return nonNegative(atof(m[1]) + atof(m[2])/60)
	}
	if m := hoursPattern.FindStringSubmatch(text); m != nil {
		return nonNegative(atof(m[1]))
	}
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		return nonNegative(atof(m[1]) / 60)
	}
	if barePattern.MatchString(text) {
		return fromBare(atof(text))
	}
	return 0
}

func fromBare(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	if n < MinuteCutoff {
		return n / 60
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Format renders hours back as "2h 30m" for display and export.
func Format(hours float64) string {
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return "0h 0m"
	}
	total := int(math.Round(hours * 60))
	return strconv.Itoa(total/60) + "h " + strconv.Itoa(total%60) + "m"
}
