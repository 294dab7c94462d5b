package engine

import (
	"time"

	"github.com/coachkit/traincue/internal/model"
)

// ResolveFireTime converts an activity's local date and time of day plus a
// reminder offset into an absolute fire instant.
//
// The date and clock are composed in the local calendar; parsing the
// combined string as UTC would silently shift the fire time by the zone
// offset. The sign convention is per direction: BeforeStart subtracts the
// offset from the activity start, AfterEnd adds the offset to the activity
// end (a delay after training finishes), never the other way around.
//
// A fire instant at or before now is a normal outcome, not an error: the
// second return value is false and the reminder is simply not scheduled.
func ResolveFireTime(date, clock string, durationMin, offsetMin int, dir model.Direction, now time.Time) (time.Time, bool, error) {
	start, err := model.ComposeLocal(date, clock)
	if err != nil {
		return time.Time{}, false, err
	}

	offset := time.Duration(offsetMin) * time.Minute

	var fireAt time.Time
	switch dir {
	case model.BeforeStart:
		fireAt = start.Add(-offset)
	case model.AfterEnd:
		end := start.Add(time.Duration(durationMin) * time.Minute)
		fireAt = end.Add(offset)
	default:
		return time.Time{}, false, errUnknownDirection(dir)
	}

	if !fireAt.After(now) {
		return time.Time{}, false, nil
	}
	return fireAt, true, nil
}

type unknownDirectionError struct {
	dir model.Direction
}

func (e *unknownDirectionError) Error() string {
	return "unknown reminder direction: " + string(e.dir)
}

func errUnknownDirection(dir model.Direction) error {
	return &unknownDirectionError{dir: dir}
}

// PendingForTask computes the schedulable reminders for one task against
// its activity as of now. Each enabled direction yields an independent
// PendingReminder with its own reminder key; directions whose fire instant
// already passed are omitted.
func PendingForTask(task *model.Task, activity *model.Activity, now time.Time) ([]model.PendingReminder, error) {
	if task.Completed {
		return nil, nil
	}

	var pending []model.PendingReminder
	for _, dir := range []model.Direction{model.BeforeStart, model.AfterEnd} {
		offset := task.OffsetFor(dir)
		if offset <= 0 {
			continue
		}

		fireAt, ok, err := ResolveFireTime(activity.Date, activity.Start, activity.DurationMin, offset, dir, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		pending = append(pending, model.PendingReminder{
			ReminderKey:   model.ReminderKey(task.Key, dir),
			TaskKey:       task.Key,
			ActivityKey:   activity.Key,
			Title:         task.Title,
			ActivityTitle: activity.Title,
			FireAt:        fireAt,
			OffsetMin:     offset,
			Direction:     dir,
		})
	}
	return pending, nil
}
