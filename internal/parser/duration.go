package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern matches duration expressions like "45m", "1h", "1h30m",
// "1.5h", "90 minutes".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes)?\s*(?:(\d+(?:\.\d+)?)\s*(m|min|mins|minute|minutes))?$`)

// ParseDurationMinutes parses a human-readable session duration into
// minutes. A bare number is taken as minutes, which is how people state
// workout lengths.
func ParseDurationMinutes(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}

	// Standard Go duration form ("1h30m") first.
	if d, err := time.ParseDuration(input); err == nil {
		return durationToMinutes(d)
	}

	matches := durationPattern.FindStringSubmatch(input)
	if matches == nil {
		return 0, fmt.Errorf("could not understand duration %q", input)
	}

	var total time.Duration

	if matches[1] != "" {
		value, _ := strconv.ParseFloat(matches[1], 64)
		unit := strings.ToLower(matches[2])
		if unit == "" {
			unit = "m"
		}
		total += unitToDuration(value, unit)
	}

	if matches[3] != "" {
		value, _ := strconv.ParseFloat(matches[3], 64)
		total += unitToDuration(value, strings.ToLower(matches[4]))
	}

	return durationToMinutes(total)
}

// durationToMinutes converts to whole minutes, rejecting non-positive and
// sub-minute values.
func durationToMinutes(d time.Duration) (int, error) {
	minutes := int(d / time.Minute)
	if minutes <= 0 {
		return 0, fmt.Errorf("duration must be at least one minute")
	}
	return minutes, nil
}

// unitToDuration converts a value and unit to a duration.
func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(value * float64(time.Hour))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}

// ParseOffsetMinutes parses a reminder offset. It accepts the same forms
// as durations and additionally rejects offsets over 24 hours, which are
// always a typo for this kind of reminder.
func ParseOffsetMinutes(input string) (int, error) {
	minutes, err := ParseDurationMinutes(input)
	if err != nil {
		return 0, err
	}
	if minutes > 24*60 {
		return 0, fmt.Errorf("reminder offset %q exceeds 24 hours", input)
	}
	return minutes, nil
}
