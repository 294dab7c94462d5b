package engine

import (
	"context"
	"fmt"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
)

// Outcome is the result of an immediate scheduling operation.
type Outcome string

const (
	// OutcomeScheduled means a live sink entry now exists for the reminder.
	OutcomeScheduled Outcome = "scheduled"

	// OutcomeDeferred means the reminder was intentionally not scheduled:
	// its fire instant is in the past or beyond the eager window. This is
	// a success path; callers must not surface it as an error.
	OutcomeDeferred Outcome = "deferred"

	// OutcomeFailed means the operation could not complete; the
	// accompanying error carries the reason.
	OutcomeFailed Outcome = "failed"
)

// ScheduleOne schedules a single reminder synchronously, outside the full
// refresh cycle, so a task edit takes effect right away.
//
// The replace is idempotent: any previous entry for the same reminder key
// is removed from both the sink and the store before the new one is
// created, so calling ScheduleOne twice never leaves two live
// notifications. Operations on the same key are serialized.
func (e *Engine) ScheduleOne(ctx context.Context, reminder model.PendingReminder) (Outcome, error) {
	unlock := e.lockKey(reminder.ReminderKey)
	defer unlock()

	now := e.now()

	// Past or beyond the window: defer without touching anything. The
	// window scheduler picks the reminder up once time brings it inside.
	if !reminder.FireAt.After(now) || reminder.FireAt.After(e.windowEnd(now)) {
		// An edit may have pushed the fire time out of range; drop any
		// stale entry from the previous schedule.
		if err := e.removeExisting(ctx, reminder.ReminderKey); err != nil {
			return OutcomeFailed, err
		}
		logging.DebugLog("reminder deferred",
			logging.KeyReminderKey, reminder.ReminderKey,
			"fire_at", reminder.FireAt)
		return OutcomeDeferred, nil
	}

	pctx, cancel := e.sinkCtx(ctx)
	ok, err := e.sink.HasPermission(pctx)
	cancel()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("permission check: %w: %v", errors.ErrSinkUnavailable, err)
	}
	if !ok {
		return OutcomeFailed, errors.ErrPermissionDenied
	}

	if err := e.removeExisting(ctx, reminder.ReminderKey); err != nil {
		return OutcomeFailed, err
	}

	cctx, cancel := e.sinkCtx(ctx)
	handle, err := e.sink.ScheduleAt(cctx, reminder.FireAt, reminder)
	cancel()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("scheduling: %w: %v", errors.ErrSinkUnavailable, err)
	}

	entry := model.ScheduledEntry{
		ReminderKey: reminder.ReminderKey,
		Handle:      handle,
		ActivityKey: reminder.ActivityKey,
		FireAt:      reminder.FireAt,
		CreatedAt:   now,
	}
	if err := e.store.Put(entry); err != nil {
		// Roll the sink entry back rather than leave a notification the
		// store does not know about.
		cctx, cancel := e.sinkCtx(ctx)
		if cerr := e.sink.Cancel(cctx, handle); cerr != nil && !errors.Is(cerr, errors.ErrHandleNotFound) {
			logging.Warn("failed to roll back sink entry",
				logging.KeyHandle, handle, logging.KeyError, cerr)
		}
		cancel()
		return OutcomeFailed, errors.NewSystemErrorWithOp("schedule", "persisting entry", err)
	}

	logging.DebugLog("reminder scheduled",
		logging.KeyReminderKey, reminder.ReminderKey,
		logging.KeyHandle, handle,
		"fire_at", reminder.FireAt)
	return OutcomeScheduled, nil
}

// CancelOne removes a reminder's sink entry and store entry. Cancelling a
// key with no entry is a no-op, not an error.
func (e *Engine) CancelOne(ctx context.Context, reminderKey string) error {
	unlock := e.lockKey(reminderKey)
	defer unlock()

	return e.removeExisting(ctx, reminderKey)
}

// removeExisting drops the current entry for a key from the sink and the
// store, if present. A handle the sink no longer knows is fine: the
// platform already lost it and only the store entry needs removing.
func (e *Engine) removeExisting(ctx context.Context, reminderKey string) error {
	entry, found, err := e.store.Get(reminderKey)
	if err != nil {
		return errors.NewSystemErrorWithOp("cancel", "reading schedule store", err)
	}
	if !found {
		return nil
	}

	cctx, cancel := e.sinkCtx(ctx)
	err = e.sink.Cancel(cctx, entry.Handle)
	cancel()
	if err != nil && !errors.Is(err, errors.ErrHandleNotFound) {
		return fmt.Errorf("cancelling %s: %w: %v", entry.Handle, errors.ErrSinkUnavailable, err)
	}

	if err := e.store.Remove(reminderKey); err != nil {
		return errors.NewSystemErrorWithOp("cancel", "removing entry", err)
	}
	return nil
}
