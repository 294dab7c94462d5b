package model

import "time"

// ScheduledEntry is the persisted record tying a logical reminder key to
// the platform notification handle it was scheduled under. At most one
// entry exists per reminder key at any time; rescheduling replaces the
// handle.
type ScheduledEntry struct {
	ReminderKey string    `json:"reminder_key"`
	Handle      string    `json:"handle"`
	ActivityKey string    `json:"activity_key"`
	FireAt      time.Time `json:"fire_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueueStats is a read-only snapshot comparing the persisted schedule
// against the live platform state. Computed on demand, never stored.
type QueueStats struct {
	SinkScheduled int         `json:"sink_scheduled"`
	StoreEntries  int         `json:"store_entries"`
	Orphans       int         `json:"orphans"`
	NextFireTimes []time.Time `json:"next_fire_times,omitempty"`
	LastRefreshAt time.Time   `json:"last_refresh_at,omitempty"`
}
