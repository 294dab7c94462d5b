package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/coachkit/traincue/internal/model"
)

// TaskRepo provides operations for Task entities.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new task repository.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// Create creates a new task with a generated key.
func (r *TaskRepo) Create(task *model.Task) error {
	if task.Key == "" {
		task.Key = model.GenerateTaskKey(uuid.New().String())
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	return r.db.Set(task)
}

// Get retrieves a task by key.
func (r *TaskRepo) Get(key string) (*model.Task, error) {
	task := &model.Task{}
	if err := r.db.Get(key, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetByShortID retrieves a task by short ID prefix match.
func (r *TaskRepo) GetByShortID(shortID string) (*model.Task, error) {
	tasks, err := r.List()
	if err != nil {
		return nil, err
	}

	var matches []*model.Task
	for _, t := range tasks {
		if matchesShortID(t.Key, model.PrefixTask, shortID) {
			matches = append(matches, t)
		}
	}

	if len(matches) == 0 {
		return nil, ErrKeyNotFound
	}
	if len(matches) > 1 {
		return nil, &AmbiguousMatchError{Matches: len(matches)}
	}
	return matches[0], nil
}

// List retrieves all tasks.
func (r *TaskRepo) List() ([]*model.Task, error) {
	return GetAllByPrefix(r.db, model.PrefixTask+":", func() *model.Task {
		return &model.Task{}
	})
}

// ListByActivity retrieves all tasks attached to an activity.
func (r *TaskRepo) ListByActivity(activityKey string) ([]*model.Task, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Task
	for _, t := range all {
		if t.ActivityKey == activityKey {
			result = append(result, t)
		}
	}
	return result, nil
}

// ListPending retrieves all tasks that are not completed.
func (r *TaskRepo) ListPending() ([]*model.Task, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Task
	for _, t := range all {
		if t.IsPending() {
			result = append(result, t)
		}
	}
	return result, nil
}

// Update updates an existing task.
func (r *TaskRepo) Update(task *model.Task) error {
	return r.db.Set(task)
}

// Delete removes a task by key.
func (r *TaskRepo) Delete(key string) error {
	return r.db.Delete(key)
}

// MarkComplete marks a task as completed.
func (r *TaskRepo) MarkComplete(key string) (*model.Task, error) {
	task, err := r.Get(key)
	if err != nil {
		return nil, err
	}

	task.Completed = true
	task.CompletedAt = time.Now()

	if err := r.db.Set(task); err != nil {
		return nil, err
	}
	return task, nil
}

// Exists checks if a task exists.
func (r *TaskRepo) Exists(key string) (bool, error) {
	return r.db.Exists(key)
}
