package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
)

// ReconcileResult reports what one reconciliation pass did.
type ReconcileResult struct {
	// RemovedOrphans is how many store entries referenced handles the
	// sink no longer holds.
	RemovedOrphans int `json:"removed_orphans"`

	// Checked is how many store entries were examined.
	Checked int `json:"checked"`
}

// Reconcile prunes the schedule store toward platform truth: every
// persisted entry whose handle is no longer in the sink's live set is
// removed. Reconciliation only ever deletes in this direction; recreating
// missing schedules is the window scheduler's job on its next run.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileResult, error) {
	cctx, cancel := e.sinkCtx(ctx)
	live, err := e.sink.ListScheduled(cctx)
	cancel()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("listing sink: %w: %v", errors.ErrSinkUnavailable, err)
	}

	liveHandles := make(map[string]struct{}, len(live))
	for _, entry := range live {
		liveHandles[entry.Handle] = struct{}{}
	}

	entries, err := e.store.All()
	if err != nil {
		return ReconcileResult{}, errors.NewSystemErrorWithOp("reconcile", "reading schedule store", err)
	}

	result := ReconcileResult{Checked: len(entries)}
	for reminderKey, entry := range entries {
		if _, ok := liveHandles[entry.Handle]; ok {
			continue
		}
		if err := e.store.Remove(reminderKey); err != nil {
			logging.Warn("failed to remove orphaned entry",
				logging.KeyReminderKey, reminderKey,
				logging.KeyError, err)
			continue
		}
		result.RemovedOrphans++
		logging.Info("removed orphaned schedule entry",
			logging.KeyReminderKey, reminderKey,
			logging.KeyHandle, entry.Handle)
	}

	return result, nil
}

// Stats composes a read-only comparison of the sink and the store for
// diagnostic surfaces. It never mutates either side.
func (e *Engine) Stats(ctx context.Context) (model.QueueStats, error) {
	cctx, cancel := e.sinkCtx(ctx)
	live, err := e.sink.ListScheduled(cctx)
	cancel()
	if err != nil {
		return model.QueueStats{}, fmt.Errorf("listing sink: %w: %v", errors.ErrSinkUnavailable, err)
	}

	entries, err := e.store.All()
	if err != nil {
		return model.QueueStats{}, errors.NewSystemErrorWithOp("stats", "reading schedule store", err)
	}

	liveHandles := make(map[string]struct{}, len(live))
	for _, entry := range live {
		liveHandles[entry.Handle] = struct{}{}
	}

	stats := model.QueueStats{
		SinkScheduled: len(live),
		StoreEntries:  len(entries),
	}
	for _, entry := range entries {
		if _, ok := liveHandles[entry.Handle]; !ok {
			stats.Orphans++
		}
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].FireAt.Before(live[j].FireAt)
	})
	upcoming := e.cfg.StatsUpcoming
	if upcoming <= 0 {
		upcoming = 5
	}
	for i, entry := range live {
		if i >= upcoming {
			break
		}
		stats.NextFireTimes = append(stats.NextFireTimes, entry.FireAt)
	}

	if last, err := e.store.LastRefreshAt(); err == nil {
		stats.LastRefreshAt = last
	}

	return stats, nil
}
