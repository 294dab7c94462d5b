// Package parser turns human-entered time expressions into the values the
// rest of the application works with: session start instants and session
// durations.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// explicitLayouts are tried before natural language parsing so unambiguous
// input never depends on parser heuristics.
var explicitLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"01/02 15:04",
	"Jan 2 15:04",
}

// ParseWhen parses a session start expression into a local instant.
// Explicit forms like "2024-06-01 18:00" are handled directly; anything
// else ("tomorrow 6pm", "friday at 7am", "in 2 hours") goes through
// natural language parsing with a future preference, since sessions are
// scheduled ahead of time.
func ParseWhen(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	for _, layout := range explicitLayouts {
		if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
			// Layouts without a year parse to year 0; pin to the current
			// year, rolling forward if the date already passed.
			if t.Year() == 0 {
				t = t.AddDate(now.Year(), 0, 0)
				if t.Before(now) {
					t = t.AddDate(1, 0, 0)
				}
			}
			return t, nil
		}
	}

	// Bare clock time means the next occurrence of that time of day.
	if t, err := time.ParseInLocation("15:04", input, now.Location()); err == nil {
		candidate := time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime:         now,
		PreferredDateSource: dateparser.Future,
	}

	result, err := dateparser.Parse(cfg, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not understand %q: %w", input, err)
	}
	return result.Time, nil
}
