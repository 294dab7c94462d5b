package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/storage"
)

func setupSource(t *testing.T) (*Store, *storage.ActivityRepo, *storage.TaskRepo) {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	activities := storage.NewActivityRepo(db)
	tasks := storage.NewTaskRepo(db)
	return New(tasks, activities), activities, tasks
}

func addActivity(t *testing.T, repo *storage.ActivityRepo, startAt time.Time, durationMin int) *model.Activity {
	t.Helper()
	activity := model.NewActivity("Morning run", startAt, durationMin)
	require.NoError(t, repo.Create(activity))
	return activity
}

func TestListPendingJoinsTasksToActivities(t *testing.T) {
	src, activities, tasks := setupSource(t)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	activity := addActivity(t, activities, now.Add(24*time.Hour), 45)

	task := model.NewTask(activity.Key, "Fill water bottle")
	task.RemindBeforeMin = 30
	task.RemindAfterMin = 15
	require.NoError(t, tasks.Create(task))

	pending, err := src.ListPending(context.Background(), now, now.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 2)

	byKey := map[string]model.PendingReminder{}
	for _, p := range pending {
		byKey[p.ReminderKey] = p
	}
	before := byKey[model.ReminderKey(task.Key, model.BeforeStart)]
	after := byKey[model.ReminderKey(task.Key, model.AfterEnd)]
	assert.Equal(t, now.Add(24*time.Hour-30*time.Minute), before.FireAt)
	assert.Equal(t, now.Add(24*time.Hour+60*time.Minute), after.FireAt)
	assert.Equal(t, activity.Key, before.ActivityKey)
}

func TestListPendingFiltersRange(t *testing.T) {
	src, activities, tasks := setupSource(t)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)

	near := addActivity(t, activities, now.Add(24*time.Hour), 60)
	far := addActivity(t, activities, now.Add(90*24*time.Hour), 60)

	for _, a := range []*model.Activity{near, far} {
		task := model.NewTask(a.Key, "Stretch")
		task.RemindBeforeMin = 10
		require.NoError(t, tasks.Create(task))
	}

	pending, err := src.ListPending(context.Background(), now, now.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, near.Key, pending[0].ActivityKey)
}

func TestListPendingSkipsCompletedAndReminderless(t *testing.T) {
	src, activities, tasks := setupSource(t)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	activity := addActivity(t, activities, now.Add(24*time.Hour), 60)

	done := model.NewTask(activity.Key, "Already done")
	done.RemindBeforeMin = 30
	done.Completed = true
	require.NoError(t, tasks.Create(done))

	silent := model.NewTask(activity.Key, "No reminder set")
	require.NoError(t, tasks.Create(silent))

	pending, err := src.ListPending(context.Background(), now, now.Add(60*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListPendingSkipsOrphanedTask(t *testing.T) {
	src, activities, tasks := setupSource(t)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	activity := addActivity(t, activities, now.Add(24*time.Hour), 60)

	task := model.NewTask(activity.Key, "Orphan")
	task.RemindBeforeMin = 15
	require.NoError(t, tasks.Create(task))

	ok := model.NewTask(activity.Key, "Still attached")
	ok.RemindBeforeMin = 20
	require.NoError(t, tasks.Create(ok))

	task.ActivityKey = "activity:deleted"
	require.NoError(t, tasks.Update(task))

	pending, err := src.ListPending(context.Background(), now, now.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1, "orphaned task is skipped, not fatal")
	assert.Equal(t, ok.Key, pending[0].TaskKey)
}
