// Package source derives pending reminders from the activity and task
// records in storage. It is the read side of scheduling: it never mutates
// anything, it just joins tasks to their activities and resolves fire
// times.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/storage"
)

// Store is a storage-backed engine.ReminderSource.
type Store struct {
	tasks      *storage.TaskRepo
	activities *storage.ActivityRepo
}

// New creates a reminder source over the given repositories.
func New(tasks *storage.TaskRepo, activities *storage.ActivityRepo) *Store {
	return &Store{tasks: tasks, activities: activities}
}

// ListPending returns every reminder whose fire time falls in [from, to):
// one per enabled direction of every pending task whose activity still
// exists. A task pointing at a deleted activity is skipped with a warning
// rather than failing the whole listing.
func (s *Store) ListPending(ctx context.Context, from, to time.Time) ([]model.PendingReminder, error) {
	tasks, err := s.tasks.ListPending()
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks: %w", err)
	}

	// Activities are fetched once and joined in memory; task counts here
	// are small enough that per-task lookups would just add round trips.
	activities, err := s.activities.List()
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	byKey := make(map[string]*model.Activity, len(activities))
	for _, a := range activities {
		byKey[a.Key] = a
	}

	var out []model.PendingReminder
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !task.HasReminder() {
			continue
		}

		activity, ok := byKey[task.ActivityKey]
		if !ok {
			logging.Warn("task references missing activity, skipping",
				logging.KeyTask, task.Key,
				logging.KeyActivity, task.ActivityKey)
			continue
		}

		pending, err := engine.PendingForTask(task, activity, from)
		if err != nil {
			logging.Warn("could not resolve reminder time, skipping",
				logging.KeyTask, task.Key,
				logging.KeyError, err)
			continue
		}
		for _, p := range pending {
			if p.FireAt.Before(to) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
