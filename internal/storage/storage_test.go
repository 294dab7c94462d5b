package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
)

// Helper to create an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenClose(t *testing.T) {
	t.Run("in_memory", func(t *testing.T) {
		db, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		assert.NotNil(t, db)
		assert.Equal(t, "", db.Path())
		assert.NoError(t, db.Close())
	})

	t.Run("empty_path_uses_in_memory", func(t *testing.T) {
		db, err := Open(Options{Path: ""})
		require.NoError(t, err)
		db.Close()
	})

	t.Run("on_disk", func(t *testing.T) {
		dir := t.TempDir()
		db, err := Open(Options{Path: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, db.Path())
		db.Close()
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Contains(t, path, "traincue")
	assert.Contains(t, path, "db")
}

func TestSetGetBytes(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.SetBytes("k", []byte("v")))

	got, err := db.GetBytes("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = db.GetBytes("missing")
	assert.True(t, IsErrKeyNotFound(err))
}

func TestActivityRepoCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepo(db)

	activity := model.NewActivity("Strength session", time.Date(2030, 1, 10, 18, 0, 0, 0, time.Local), 60)
	require.NoError(t, repo.Create(activity))
	assert.NotEmpty(t, activity.Key)

	retrieved, err := repo.Get(activity.Key)
	require.NoError(t, err)
	assert.Equal(t, "Strength session", retrieved.Title)
	assert.Equal(t, "2030-01-10", retrieved.Date)
	assert.Equal(t, "18:00", retrieved.Start)

	retrieved.Title = "Heavy strength session"
	require.NoError(t, repo.Update(retrieved))

	again, err := repo.Get(activity.Key)
	require.NoError(t, err)
	assert.Equal(t, "Heavy strength session", again.Title)

	require.NoError(t, repo.Delete(activity.Key))
	_, err = repo.Get(activity.Key)
	assert.True(t, IsErrKeyNotFound(err))
}

func TestActivityRepoListBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepo(db)

	near := model.NewActivity("Near", time.Now().Add(24*time.Hour), 60)
	far := model.NewActivity("Far", time.Now().Add(90*24*time.Hour), 60)
	require.NoError(t, repo.Create(near))
	require.NoError(t, repo.Create(far))

	within, err := repo.ListBetween(time.Now(), time.Now().Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, within, 1)
	assert.Equal(t, "Near", within[0].Title)
}

func TestActivityRepoShortID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepo(db)

	activity := model.NewActivity("Run", time.Now().Add(time.Hour), 30)
	require.NoError(t, repo.Create(activity))

	found, err := repo.GetByShortID(activity.ShortID())
	require.NoError(t, err)
	assert.Equal(t, activity.Key, found.Key)

	_, err = repo.GetByShortID("zzzzzz")
	assert.True(t, IsErrKeyNotFound(err))
}

func TestTaskRepoCRUD(t *testing.T) {
	db := setupTestDB(t)
	activities := NewActivityRepo(db)
	tasks := NewTaskRepo(db)

	activity := model.NewActivity("Spin class", time.Now().Add(48*time.Hour), 45)
	require.NoError(t, activities.Create(activity))

	task := model.NewTask(activity.Key, "Bring water bottle")
	task.RemindBeforeMin = 30
	require.NoError(t, tasks.Create(task))

	byActivity, err := tasks.ListByActivity(activity.Key)
	require.NoError(t, err)
	require.Len(t, byActivity, 1)
	assert.Equal(t, 30, byActivity[0].RemindBeforeMin)

	completed, err := tasks.MarkComplete(task.Key)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.False(t, completed.CompletedAt.IsZero())

	pending, err := tasks.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWebhookRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookRepo(db)

	wh := model.NewWebhook("team", model.WebhookTypeSlack, "https://hooks.slack.com/services/T/B/x")
	require.NoError(t, repo.Create(wh))

	enabled, err := repo.ListEnabled()
	require.NoError(t, err)
	assert.Len(t, enabled, 1)

	require.NoError(t, repo.SetEnabled("team", false))
	enabled, err = repo.ListEnabled()
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, repo.UpdateLastUsed("team", nil))
	got, err := repo.Get("team")
	require.NoError(t, err)
	assert.False(t, got.LastUsed.IsZero())
	assert.Empty(t, got.LastError)

	require.NoError(t, repo.Delete("team"))
	_, err = repo.Get("team")
	assert.True(t, IsErrKeyNotFound(err))
}
