package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
)

func TestResolveFireTimeBeforeStart(t *testing.T) {
	// Activity starts 2024-01-10 18:00 local; reminder 30 minutes before,
	// computed at 17:00, fires at 17:30.
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, time.Local)

	fireAt, ok, err := ResolveFireTime("2024-01-10", "18:00", 60, 30, model.BeforeStart, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 10, 17, 30, 0, 0, time.Local), fireAt)
}

func TestResolveFireTimePastIsNotScheduled(t *testing.T) {
	// Same task edited to offset 90: 16:30 is before now (17:00), so the
	// reminder is quietly not scheduled.
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, time.Local)

	_, ok, err := ResolveFireTime("2024-01-10", "18:00", 60, 90, model.BeforeStart, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveFireTimeExactlyNowIsNotScheduled(t *testing.T) {
	now := time.Date(2024, 1, 10, 17, 30, 0, 0, time.Local)

	_, ok, err := ResolveFireTime("2024-01-10", "18:00", 60, 30, model.BeforeStart, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveFireTimeAfterEndAdds(t *testing.T) {
	// After-end reminders are a delay past the activity end: the offset
	// is added, never subtracted.
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, time.Local)

	fireAt, ok, err := ResolveFireTime("2024-01-10", "18:00", 60, 120, model.AfterEnd, now)
	require.NoError(t, err)
	require.True(t, ok)
	// End is 19:00, plus 120 minutes = 21:00.
	assert.Equal(t, time.Date(2024, 1, 10, 21, 0, 0, 0, time.Local), fireAt)
}

func TestResolveFireTimeLocalComposition(t *testing.T) {
	now := time.Date(2024, 1, 9, 12, 0, 0, 0, time.Local)

	fireAt, ok, err := ResolveFireTime("2024-01-10", "18:00", 60, 0, model.AfterEnd, now)
	require.NoError(t, err)
	require.True(t, ok)
	// The composed instant must be in the local zone, not a UTC
	// reinterpretation shifted by the zone offset.
	assert.Equal(t, time.Local, fireAt.Location())
	assert.Equal(t, 19, fireAt.Hour())
}

func TestResolveFireTimeBadInput(t *testing.T) {
	now := time.Now()

	_, _, err := ResolveFireTime("not-a-date", "18:00", 60, 30, model.BeforeStart, now)
	assert.Error(t, err)

	_, _, err = ResolveFireTime("2024-01-10", "18:00", 60, 30, model.Direction("sideways"), now)
	assert.Error(t, err)
}

func TestPendingForTaskFansOutPerDirection(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	activity := &model.Activity{
		Key: "activity:a1", Title: "Strength",
		Date: "2024-01-10", Start: "18:00", DurationMin: 60,
	}
	task := model.NewTask(activity.Key, "Log your sets")
	task.Key = "task:t1"
	task.RemindBeforeMin = 30
	task.RemindAfterMin = 120

	pending, err := PendingForTask(task, activity, now)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	keys := map[string]model.PendingReminder{}
	for _, p := range pending {
		keys[p.ReminderKey] = p
	}

	before := keys[model.ReminderKey("task:t1", model.BeforeStart)]
	after := keys[model.ReminderKey("task:t1", model.AfterEnd)]
	assert.Equal(t, time.Date(2024, 1, 10, 17, 30, 0, 0, time.Local), before.FireAt)
	assert.Equal(t, time.Date(2024, 1, 10, 21, 0, 0, 0, time.Local), after.FireAt)
	assert.Equal(t, "Strength", before.ActivityTitle)
}

func TestPendingForTaskSkipsDisabledAndPast(t *testing.T) {
	activity := &model.Activity{
		Key: "activity:a1", Title: "Strength",
		Date: "2024-01-10", Start: "18:00", DurationMin: 60,
	}
	task := model.NewTask(activity.Key, "Stretch")
	task.Key = "task:t1"
	task.RemindBeforeMin = 30

	// Before-start instant already passed, after-end disabled: nothing.
	now := time.Date(2024, 1, 10, 17, 45, 0, 0, time.Local)
	pending, err := PendingForTask(task, activity, now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPendingForTaskCompletedYieldsNothing(t *testing.T) {
	activity := &model.Activity{
		Key: "activity:a1", Date: "2030-01-10", Start: "18:00", DurationMin: 60,
	}
	task := model.NewTask(activity.Key, "Done already")
	task.Key = "task:t1"
	task.RemindBeforeMin = 30
	task.Completed = true

	pending, err := PendingForTask(task, activity, time.Now())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
