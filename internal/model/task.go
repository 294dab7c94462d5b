package model

import (
	"fmt"
	"time"
)

// Task represents a coaching task attached to an activity, optionally
// carrying reminder offsets for either direction.
type Task struct {
	Key         string `json:"key"`
	ActivityKey string `json:"activity_key"`
	Title       string `json:"title" validate:"required,max=200"`
	Note        string `json:"note,omitempty"`

	// RemindBeforeMin fires a reminder this many minutes before the
	// activity starts. Zero disables the before-start reminder.
	RemindBeforeMin int `json:"remind_before_min,omitempty"`

	// RemindAfterMin fires a reminder this many minutes after the
	// activity ends. Zero disables the after-end reminder.
	RemindAfterMin int `json:"remind_after_min,omitempty"`

	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SetKey sets the database key for this task.
func (t *Task) SetKey(key string) {
	t.Key = key
}

// GetKey returns the database key for this task.
func (t *Task) GetKey() string {
	return t.Key
}

// IsPending returns true if the task is not completed.
func (t *Task) IsPending() bool {
	return !t.Completed
}

// OffsetFor returns the reminder offset in minutes for a direction.
// Zero means the reminder is disabled for that direction.
func (t *Task) OffsetFor(d Direction) int {
	switch d {
	case BeforeStart:
		return t.RemindBeforeMin
	case AfterEnd:
		return t.RemindAfterMin
	default:
		return 0
	}
}

// HasReminder returns true if any reminder direction is enabled.
func (t *Task) HasReminder() bool {
	return t.RemindBeforeMin > 0 || t.RemindAfterMin > 0
}

// ShortID returns the first 6 characters of the UUID for display.
func (t *Task) ShortID() string {
	// Key format: "task:uuid"
	if len(t.Key) > 11 {
		return t.Key[5:11]
	}
	return t.Key
}

// GenerateTaskKey generates a database key for a task using UUID.
func GenerateTaskKey(uuid string) string {
	return fmt.Sprintf("%s:%s", PrefixTask, uuid)
}

// NewTask creates a new task attached to an activity.
func NewTask(activityKey, title string) *Task {
	return &Task{
		ActivityKey: activityKey,
		Title:       title,
		CreatedAt:   time.Now(),
	}
}
