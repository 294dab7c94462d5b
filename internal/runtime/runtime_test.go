package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/output"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := New(Options{
		InMemory:  true,
		Format:    output.FormatCLI,
		ColorMode: output.ColorNever,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestNewWiresEverything(t *testing.T) {
	ctx := newTestContext(t)

	assert.NotNil(t, ctx.DB)
	assert.NotNil(t, ctx.ActivityRepo)
	assert.NotNil(t, ctx.TaskRepo)
	assert.NotNil(t, ctx.WebhookRepo)
	assert.NotNil(t, ctx.EntryStore)
	assert.NotNil(t, ctx.Sink)
	assert.NotNil(t, ctx.Source)
	assert.NotNil(t, ctx.Engine)
	assert.NotNil(t, ctx.Dispatcher)
}

func TestMemoryDatabaseEnvOverride(t *testing.T) {
	t.Setenv("TRAINCUE_DATABASE", ":memory:")

	ctx, err := New(DefaultOptions())
	require.NoError(t, err)
	defer ctx.Close()

	assert.Empty(t, ctx.DB.Path())
}

func TestEndToEndRefreshThroughContext(t *testing.T) {
	ctx := newTestContext(t)

	// A webhook grants delivery permission.
	require.NoError(t, ctx.WebhookRepo.Create(
		model.NewWebhook("coach", model.WebhookTypeGeneric, "https://example.com/hook")))

	activity := model.NewActivity("Strength", time.Now().Add(48*time.Hour), 60)
	require.NoError(t, ctx.ActivityRepo.Create(activity))

	task := model.NewTask(activity.Key, "Pack bag")
	task.RemindBeforeMin = 30
	require.NoError(t, ctx.TaskRepo.Create(task))

	result, err := ctx.Engine.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)

	entries, err := ctx.Sink.ListScheduled(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ReminderKey(task.Key, model.BeforeStart), entries[0].Reminder.ReminderKey)
}

func TestFormatters(t *testing.T) {
	ctx := newTestContext(t)
	assert.NotNil(t, ctx.CLIFormatter())
	assert.NotNil(t, ctx.JSONFormatter())
	assert.False(t, ctx.IsJSON())
}
