package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
)

func TestReconcileRemovesOrphans(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	_, err := e.ScheduleOne(context.Background(), reminderAt("alive|before_start", testNow.Add(time.Hour)))
	require.NoError(t, err)
	_, err = e.ScheduleOne(context.Background(), reminderAt("gone|before_start", testNow.Add(2*time.Hour)))
	require.NoError(t, err)

	// The platform dropped one entry; its store record is now an orphan.
	goneEntry, _, err := store.Get("gone|before_start")
	require.NoError(t, err)
	sink.drop(goneEntry.Handle)

	result, err := e.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.RemovedOrphans)

	_, found, err := store.Get("gone|before_start")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = store.Get("alive|before_start")
	require.NoError(t, err)
	assert.True(t, found, "entries with live handles stay untouched")
}

func TestReconcileNeverTouchesSink(t *testing.T) {
	e, sink, _ := newTestEngine(t, nil)

	_, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(time.Hour)))
	require.NoError(t, err)

	result, err := e.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.RemovedOrphans)
	assert.Equal(t, 1, sink.count())
}

func TestStats(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	for i, key := range []string{"a|before_start", "b|before_start", "c|after_end"} {
		_, err := e.ScheduleOne(context.Background(), reminderAt(key, testNow.Add(time.Duration(i+1)*time.Hour)))
		require.NoError(t, err)
	}

	// One store entry goes orphan.
	entry, _, err := store.Get("c|after_end")
	require.NoError(t, err)
	sink.drop(entry.Handle)

	require.NoError(t, store.SetLastRefreshAt(testNow.Add(-2*time.Hour)))

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SinkScheduled)
	assert.Equal(t, 3, stats.StoreEntries)
	assert.Equal(t, 1, stats.Orphans)
	assert.Equal(t, testNow.Add(-2*time.Hour), stats.LastRefreshAt)

	// Upcoming fire times come back soonest first.
	require.Len(t, stats.NextFireTimes, 2)
	assert.True(t, stats.NextFireTimes[0].Before(stats.NextFireTimes[1]))

	// Stats is read-only.
	entries, err := store.All()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, sink.count())
}

func TestStatsLimitsUpcoming(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	for i := 0; i < 8; i++ {
		key := model.ReminderKey("task:t"+string(rune('a'+i)), model.BeforeStart)
		_, err := e.ScheduleOne(context.Background(), reminderAt(key, testNow.Add(time.Duration(i+1)*time.Hour)))
		require.NoError(t, err)
	}

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.SinkScheduled)
	assert.Len(t, stats.NextFireTimes, 5)
}
