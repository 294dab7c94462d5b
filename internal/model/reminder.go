package model

import (
	"fmt"
	"time"
)

// Direction says which end of the activity a reminder is anchored to.
// The sign convention differs per direction: before-start offsets are
// subtracted from the start, after-end offsets are added to the end.
// Keeping the direction as an explicit tag avoids inferring the sign
// from which field happens to be set.
type Direction string

const (
	// BeforeStart fires offset minutes before the activity starts.
	BeforeStart Direction = "before_start"
	// AfterEnd fires offset minutes after the activity ends.
	AfterEnd Direction = "after_end"
)

// Valid returns true for a known direction.
func (d Direction) Valid() bool {
	return d == BeforeStart || d == AfterEnd
}

// Label returns a human-readable label for the direction.
func (d Direction) Label() string {
	switch d {
	case BeforeStart:
		return "before start"
	case AfterEnd:
		return "after end"
	default:
		return string(d)
	}
}

// ReminderKey builds the stable logical key for one task's reminder in one
// direction. The two directions of a task are independent schedulable
// reminders, so the direction is part of the key.
func ReminderKey(taskKey string, d Direction) string {
	return fmt.Sprintf("%s|%s", taskKey, d)
}

// PendingReminder is a reminder computed from a task and its owning
// activity. It is recomputed from source data on every refresh and never
// persisted directly.
type PendingReminder struct {
	ReminderKey   string    `json:"reminder_key"`
	TaskKey       string    `json:"task_key"`
	ActivityKey   string    `json:"activity_key"`
	Title         string    `json:"title"`
	ActivityTitle string    `json:"activity_title"`
	FireAt        time.Time `json:"fire_at"`
	OffsetMin     int       `json:"offset_min"`
	Direction     Direction `json:"direction"`
}
