package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/storage"
)

// resolveActivity looks up an activity by short ID prefix.
func resolveActivity(shortID string) (*model.Activity, error) {
	activity, err := ctx.ActivityRepo.GetByShortID(shortID)
	if err != nil {
		if storage.IsErrKeyNotFound(err) {
			return nil, errors.ErrActivityNotFound
		}
		var ambiguous *storage.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			return nil, fmt.Errorf("'%s' matches %d activities, use more characters", shortID, ambiguous.Matches)
		}
		return nil, err
	}
	return activity, nil
}

// resolveTask looks up a task by short ID prefix.
func resolveTask(shortID string) (*model.Task, error) {
	task, err := ctx.TaskRepo.GetByShortID(shortID)
	if err != nil {
		if storage.IsErrKeyNotFound(err) {
			return nil, errors.ErrTaskNotFound
		}
		var ambiguous *storage.AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			return nil, fmt.Errorf("'%s' matches %d tasks, use more characters", shortID, ambiguous.Matches)
		}
		return nil, err
	}
	return task, nil
}

// syncTaskReminders brings the scheduled state of one task in line with its
// current offsets: each enabled direction gets an immediate schedule (or a
// deferral), each disabled or no-longer-resolvable direction gets cancelled.
// Missing notification permission is a warning here, not a failure; the
// task edit itself already succeeded.
func syncTaskReminders(cmdCtx context.Context, task *model.Task, activity *model.Activity) error {
	pending, err := engine.PendingForTask(task, activity, time.Now())
	if err != nil {
		return err
	}

	byDirection := make(map[model.Direction]model.PendingReminder, len(pending))
	for _, p := range pending {
		byDirection[p.Direction] = p
	}

	for _, dir := range []model.Direction{model.BeforeStart, model.AfterEnd} {
		reminder, enabled := byDirection[dir]
		if !enabled {
			if err := ctx.Engine.CancelOne(cmdCtx, model.ReminderKey(task.Key, dir)); err != nil {
				return err
			}
			continue
		}

		_, err := ctx.Engine.ScheduleOne(cmdCtx, reminder)
		if err != nil {
			if errors.IsPermissionDenied(err) {
				if !ctx.IsJSON() {
					ctx.CLIFormatter().Warning("No delivery channel configured; reminder saved but not scheduled.")
				}
				return nil
			}
			return err
		}
	}

	return nil
}

// cancelTaskReminders drops both directions of a task from the schedule.
func cancelTaskReminders(cmdCtx context.Context, taskKey string) error {
	for _, dir := range []model.Direction{model.BeforeStart, model.AfterEnd} {
		if err := ctx.Engine.CancelOne(cmdCtx, model.ReminderKey(taskKey, dir)); err != nil {
			return err
		}
	}
	return nil
}

// rescheduleActivityTasks re-syncs reminders for every task attached to an
// activity after its schedule changed.
func rescheduleActivityTasks(cmdCtx context.Context, activity *model.Activity) error {
	tasks, err := ctx.TaskRepo.ListByActivity(activity.Key)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := syncTaskReminders(cmdCtx, task, activity); err != nil {
			return err
		}
	}
	return nil
}
