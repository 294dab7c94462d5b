package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
)

// RefreshResult reports what one window refresh did.
type RefreshResult struct {
	// Skipped is true when the refresh cadence made the call a no-op.
	Skipped bool `json:"skipped"`

	// Scheduled is how many reminders were scheduled against the sink.
	Scheduled int `json:"scheduled"`

	// Failed is how many individual items failed; the refresh still
	// completes.
	Failed int `json:"failed"`

	// Deferred is how many in-window reminders were left for a later
	// cycle because of the count cap.
	Deferred int `json:"deferred"`

	// At is the refresh completion time recorded as the new cadence marker.
	At time.Time `json:"at,omitempty"`
}

// Refresh makes the sink's scheduled set equal to the highest-priority
// subset of currently pending reminders: soonest fire time first, bounded
// by the window and the count cap.
//
// The strategy is clear-then-rebuild. It trades a sub-second interval with
// zero scheduled reminders for the guarantee that stale, duplicate, or
// renamed entries never accumulate. A failure on one item never aborts the
// batch; the refresh always completes and advances the cadence marker so
// one bad item cannot seize up the refresh cycle. The single exception is
// missing notification permission, which aborts before any clearing:
// destroying a working schedule without the ability to rebuild it is worse
// than doing nothing.
func (e *Engine) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	now := e.now()

	if !force {
		last, err := e.store.LastRefreshAt()
		if err != nil {
			return RefreshResult{}, errors.NewSystemErrorWithOp("refresh", "storage unavailable", err)
		}
		if !last.IsZero() && now.Sub(last) < e.cfg.RefreshInterval {
			logging.DebugLog("refresh not due, skipping",
				"last_refresh", last, "interval", e.cfg.RefreshInterval)
			return RefreshResult{Skipped: true}, nil
		}
	}

	pctx, cancel := e.sinkCtx(ctx)
	ok, err := e.sink.HasPermission(pctx)
	cancel()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("permission check: %w: %v", errors.ErrSinkUnavailable, err)
	}
	if !ok {
		return RefreshResult{}, fmt.Errorf("refresh aborted: %w", errors.ErrPermissionDenied)
	}

	pending, err := e.source.ListPending(ctx, now, e.windowEnd(now))
	if err != nil {
		return RefreshResult{}, errors.NewSystemErrorWithOp("refresh", "listing pending reminders", err)
	}

	// Soonest first; key order breaks ties so the selection is deterministic.
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].FireAt.Equal(pending[j].FireAt) {
			return pending[i].FireAt.Before(pending[j].FireAt)
		}
		return pending[i].ReminderKey < pending[j].ReminderKey
	})

	result := RefreshResult{At: now}
	if len(pending) > e.cfg.MaxScheduled {
		result.Deferred = len(pending) - e.cfg.MaxScheduled
		pending = pending[:e.cfg.MaxScheduled]
		logging.Info("scheduling cap reached, deferring reminders",
			logging.KeyCount, result.Deferred)
	}

	cctx, cancel := e.sinkCtx(ctx)
	err = e.sink.CancelAll(cctx)
	cancel()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("clearing sink: %w: %v", errors.ErrSinkUnavailable, err)
	}

	if err := e.store.Clear(); err != nil {
		// Leftover entries become orphans and the reconciler prunes
		// them; keep rebuilding.
		logging.Warn("failed to clear schedule store", logging.KeyError, err)
	}

	for _, reminder := range pending {
		if err := e.scheduleAndPersist(ctx, reminder, now); err != nil {
			result.Failed++
			logging.Warn("failed to schedule reminder",
				logging.KeyReminderKey, reminder.ReminderKey,
				logging.KeyError, err)
			continue
		}
		result.Scheduled++
	}

	if err := e.store.SetLastRefreshAt(now); err != nil {
		logging.Warn("failed to record refresh time", logging.KeyError, err)
	}

	logging.Info("refresh complete",
		"scheduled", result.Scheduled,
		"failed", result.Failed,
		"deferred", result.Deferred)
	return result, nil
}

// RefreshDue reports whether a non-forced refresh would do work now.
func (e *Engine) RefreshDue() (bool, error) {
	last, err := e.store.LastRefreshAt()
	if err != nil {
		return false, err
	}
	return last.IsZero() || e.now().Sub(last) >= e.cfg.RefreshInterval, nil
}

// scheduleAndPersist schedules one reminder and records its entry. The
// store write is sequenced after the sink call succeeds so a persisted
// entry never points at a handle that was never created.
func (e *Engine) scheduleAndPersist(ctx context.Context, reminder model.PendingReminder, now time.Time) error {
	cctx, cancel := e.sinkCtx(ctx)
	handle, err := e.sink.ScheduleAt(cctx, reminder.FireAt, reminder)
	cancel()
	if err != nil {
		return err
	}

	entry := model.ScheduledEntry{
		ReminderKey: reminder.ReminderKey,
		Handle:      handle,
		ActivityKey: reminder.ActivityKey,
		FireAt:      reminder.FireAt,
		CreatedAt:   now,
	}
	if err := e.store.Put(entry); err != nil {
		return fmt.Errorf("persisting entry: %w", err)
	}
	return nil
}
