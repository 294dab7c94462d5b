// Package engine implements the reminder scheduling and reconciliation
// core: it turns pending task reminders into platform-level scheduled
// notifications while respecting a hard capacity cap, surviving restarts,
// and staying consistent with a backing store that can change at any time.
package engine

import (
	"context"
	"time"

	"github.com/coachkit/traincue/internal/model"
)

// SinkEntry is one live scheduled notification as reported by the sink.
type SinkEntry struct {
	Handle   string
	FireAt   time.Time
	Reminder model.PendingReminder
}

// NotificationSink is the platform facility that holds fire-and-forget
// timed notifications. The environment enforces a hard maximum of
// concurrently scheduled entries; the engine respects it via its own cap
// but never assumes the sink's contents are stable; the platform may drop
// entries at any time (OS eviction, reinstall, manual clear).
type NotificationSink interface {
	// ScheduleAt schedules a notification and returns its opaque handle.
	ScheduleAt(ctx context.Context, fireAt time.Time, reminder model.PendingReminder) (string, error)

	// Cancel removes a scheduled notification. Cancelling an unknown
	// handle returns ErrHandleNotFound.
	Cancel(ctx context.Context, handle string) error

	// CancelAll removes every scheduled notification.
	CancelAll(ctx context.Context) error

	// ListScheduled returns the live scheduled set.
	ListScheduled(ctx context.Context) ([]SinkEntry, error)

	// HasPermission reports whether the sink is allowed to deliver
	// notifications at all.
	HasPermission(ctx context.Context) (bool, error)
}

// ReminderSource supplies the current set of pending reminders: task and
// activity pairs with an unfired, uncompleted reminder whose fire time
// falls in [from, to).
type ReminderSource interface {
	ListPending(ctx context.Context, from, to time.Time) ([]model.PendingReminder, error)
}

// EntryStore is the durable reminderKey -> ScheduledEntry mapping plus the
// refresh marker. Implementations must tolerate empty or corrupt storage
// by reporting an empty mapping rather than failing.
type EntryStore interface {
	Put(entry model.ScheduledEntry) error
	Get(reminderKey string) (model.ScheduledEntry, bool, error)
	Remove(reminderKey string) error
	Clear() error
	All() (map[string]model.ScheduledEntry, error)
	LastRefreshAt() (time.Time, error)
	SetLastRefreshAt(t time.Time) error
}
