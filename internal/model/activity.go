package model

import (
	"fmt"
	"time"
)

// Date and clock layouts used for activity scheduling. Both are interpreted
// in the local calendar, never as UTC.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Activity represents a scheduled training session. Date and Start are kept
// as local calendar strings so the fire-time math composes them explicitly
// in the local zone instead of round-tripping through UTC.
type Activity struct {
	Key         string    `json:"key"`
	Title       string    `json:"title" validate:"required,max=200"`
	Date        string    `json:"date"`  // local calendar day, DateLayout
	Start       string    `json:"start"` // local time of day, ClockLayout
	DurationMin int       `json:"duration_min"`
	External    bool      `json:"external,omitempty"` // imported from a calendar feed
	CreatedAt   time.Time `json:"created_at"`
}

// SetKey sets the database key for this activity.
func (a *Activity) SetKey(key string) {
	a.Key = key
}

// GetKey returns the database key for this activity.
func (a *Activity) GetKey() string {
	return a.Key
}

// StartAt composes the activity's absolute start instant in local time.
func (a *Activity) StartAt() (time.Time, error) {
	return ComposeLocal(a.Date, a.Start)
}

// EndAt returns the activity's absolute end instant in local time.
func (a *Activity) EndAt() (time.Time, error) {
	start, err := a.StartAt()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.DurationMin) * time.Minute), nil
}

// ShortID returns the first 6 characters of the UUID for display.
func (a *Activity) ShortID() string {
	// Key format: "activity:uuid"
	if len(a.Key) > 15 {
		return a.Key[9:15]
	}
	return a.Key
}

// ComposeLocal builds an absolute instant from a local date and time of day.
// Parsing happens in time.Local; parsing the combined string as UTC would
// silently shift the instant by the zone offset.
func ComposeLocal(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// GenerateActivityKey generates a database key for an activity using UUID.
func GenerateActivityKey(uuid string) string {
	return fmt.Sprintf("%s:%s", PrefixActivity, uuid)
}

// NewActivity creates a new activity from an absolute local start time.
func NewActivity(title string, startAt time.Time, durationMin int) *Activity {
	local := startAt.Local()
	return &Activity{
		Title:       title,
		Date:        local.Format(DateLayout),
		Start:       local.Format(ClockLayout),
		DurationMin: durationMin,
		CreatedAt:   time.Now(),
	}
}
