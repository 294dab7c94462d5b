package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	// User input errors
	ErrActivityNotFound: "Use 'traincue activity list' to see scheduled activities.",
	ErrTaskNotFound:     "Use 'traincue task list' to see tasks.",
	ErrWebhookNotFound:  "Use 'traincue webhook list' to see configured channels.",
	ErrInvalidOffset:    "Reminder offsets are whole minutes, e.g. --before 30 or --after 120.",
	ErrInvalidTimestamp: "Try formats like 'tomorrow 6pm', 'friday 18:00', or '2026-01-15 14:00'.",
	ErrInvalidURL:       "Provide a valid URL starting with https:// (or http:// for localhost).",

	// System errors
	ErrPermissionDenied:   "Add a delivery channel with 'traincue webhook add' so reminders have somewhere to go.",
	ErrSinkUnavailable:    "The notification queue is not reachable. Try again shortly.",
	ErrSinkCapacity:       "The notification queue is full. A refresh will reschedule the soonest reminders first.",
	ErrStorageUnavailable: "Check file permissions in your data directory (~/.local/share/traincue/).",
	ErrDatabaseCorrupted:  "The schedule store will be rebuilt on the next 'traincue refresh --force'.",
	ErrLockHeld:           "Another traincue instance is running. Use 'traincue daemon stop' or check for stale processes.",
	ErrTimeout:            "The operation took too long. Try again or check your network connection.",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}

	return ""
}
