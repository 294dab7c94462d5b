package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/config"
	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/model"
)

// fakeSink is an in-memory NotificationSink with scriptable failures.
type fakeSink struct {
	mu      sync.Mutex
	entries map[string]SinkEntry
	nextID  int

	permission    bool
	permissionErr error

	// failKeys makes ScheduleAt fail for specific reminder keys.
	failKeys map[string]bool

	scheduleCalls  int
	cancelAllCalls int
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		entries:    map[string]SinkEntry{},
		permission: true,
		failKeys:   map[string]bool{},
	}
}

func (f *fakeSink) ScheduleAt(_ context.Context, fireAt time.Time, reminder model.PendingReminder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scheduleCalls++
	if f.failKeys[reminder.ReminderKey] {
		return "", fmt.Errorf("sink rejected %s", reminder.ReminderKey)
	}
	f.nextID++
	handle := fmt.Sprintf("h%d", f.nextID)
	f.entries[handle] = SinkEntry{Handle: handle, FireAt: fireAt, Reminder: reminder}
	return handle, nil
}

func (f *fakeSink) Cancel(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[handle]; !ok {
		return errors.ErrHandleNotFound
	}
	delete(f.entries, handle)
	return nil
}

func (f *fakeSink) CancelAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelAllCalls++
	f.entries = map[string]SinkEntry{}
	return nil
}

func (f *fakeSink) ListScheduled(_ context.Context) ([]SinkEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]SinkEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeSink) HasPermission(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission, f.permissionErr
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeSink) drop(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, handle)
}

// fakeSource serves a fixed reminder list, range-filtered like a real source.
type fakeSource struct {
	pending []model.PendingReminder
	err     error
}

func (f *fakeSource) ListPending(_ context.Context, from, to time.Time) ([]model.PendingReminder, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.PendingReminder
	for _, p := range f.pending {
		if p.FireAt.After(from) && p.FireAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// memStore is an in-memory EntryStore.
type memStore struct {
	mu      sync.Mutex
	entries map[string]model.ScheduledEntry
	last    time.Time

	putErr error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]model.ScheduledEntry{}}
}

func (m *memStore) Put(entry model.ScheduledEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[entry.ReminderKey] = entry
	return nil
}

func (m *memStore) Get(reminderKey string) (model.ScheduledEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[reminderKey]
	return e, ok, nil
}

func (m *memStore) Remove(reminderKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, reminderKey)
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]model.ScheduledEntry{}
	return nil
}

func (m *memStore) All() (map[string]model.ScheduledEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.ScheduledEntry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) LastRefreshAt() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *memStore) SetLastRefreshAt(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = t
	return nil
}

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		WindowDays:      60,
		MaxScheduled:    60,
		RefreshInterval: 24 * time.Hour,
		SinkTimeout:     5 * time.Second,
		StatsUpcoming:   5,
	}
}

func newTestEngine(t *testing.T, source *fakeSource) (*Engine, *fakeSink, *memStore) {
	t.Helper()
	sink := newFakeSink()
	store := newMemStore()
	if source == nil {
		source = &fakeSource{}
	}
	e := New(sink, source, store, testConfig())
	e.now = func() time.Time { return testNow }
	return e, sink, store
}

func reminderAt(key string, fireAt time.Time) model.PendingReminder {
	return model.PendingReminder{
		ReminderKey: key,
		TaskKey:     "task:" + key,
		ActivityKey: "activity:a1",
		Title:       "reminder " + key,
		FireAt:      fireAt,
		Direction:   model.BeforeStart,
	}
}

func TestRefreshSchedulesPendingWindow(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("t1|before_start", testNow.Add(2*time.Hour)),
		reminderAt("t2|before_start", testNow.Add(48*time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)

	result, err := e.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Scheduled)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, sink.count())

	entries, err := store.All()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	last, err := store.LastRefreshAt()
	require.NoError(t, err)
	assert.Equal(t, testNow, last)
}

func TestRefreshCadenceSkipsWhenNotDue(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("t1|before_start", testNow.Add(time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)

	require.NoError(t, store.SetLastRefreshAt(testNow.Add(-time.Hour)))

	result, err := e.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, sink.cancelAllCalls)
}

func TestRefreshForceIgnoresCadence(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("t1|before_start", testNow.Add(time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)

	require.NoError(t, store.SetLastRefreshAt(testNow.Add(-time.Hour)))

	result, err := e.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Scheduled)
	assert.Equal(t, 1, sink.count())
}

func TestRefreshExcludesRemindersBeyondWindow(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("near|before_start", testNow.Add(24*time.Hour)),
		reminderAt("far|before_start", testNow.Add(61*24*time.Hour)),
	}}
	e, sink, _ := newTestEngine(t, source)

	result, err := e.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)
	assert.Equal(t, 1, sink.count())
}

func TestRefreshCapsAtMaxSoonestFirst(t *testing.T) {
	var pending []model.PendingReminder
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("t%03d|before_start", i)
		pending = append(pending, reminderAt(key, testNow.Add(time.Duration(i+1)*time.Hour)))
	}
	source := &fakeSource{pending: pending}
	e, sink, _ := newTestEngine(t, source)

	result, err := e.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 60, result.Scheduled)
	assert.Equal(t, 40, result.Deferred)
	assert.Equal(t, 60, sink.count())

	// The scheduled 60 are the soonest: the latest live fire time must
	// be earlier than the earliest deferred one.
	live, err := sink.ListScheduled(context.Background())
	require.NoError(t, err)
	deferredEarliest := testNow.Add(61 * time.Hour)
	for _, entry := range live {
		assert.True(t, entry.FireAt.Before(deferredEarliest))
	}
}

func TestRefreshPermissionDeniedAbortsWithoutMutation(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("t1|before_start", testNow.Add(time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)

	// A live schedule exists from a previous run.
	handle, err := sink.ScheduleAt(context.Background(), testNow.Add(30*time.Minute), reminderAt("old|before_start", testNow.Add(30*time.Minute)))
	require.NoError(t, err)
	require.NoError(t, store.Put(model.ScheduledEntry{ReminderKey: "old|before_start", Handle: handle, FireAt: testNow.Add(30 * time.Minute)}))
	before, err := store.LastRefreshAt()
	require.NoError(t, err)

	sink.permission = false

	_, err = e.Refresh(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))

	// Nothing was cleared, nothing was scheduled, cadence unchanged.
	assert.Equal(t, 0, sink.cancelAllCalls)
	assert.Equal(t, 1, sink.count())
	entries, err := store.All()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	after, err := store.LastRefreshAt()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRefreshItemFailureDoesNotAbortBatch(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("a|before_start", testNow.Add(1*time.Hour)),
		reminderAt("b|before_start", testNow.Add(2*time.Hour)),
		reminderAt("c|before_start", testNow.Add(3*time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)
	sink.failKeys["b|before_start"] = true

	result, err := e.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scheduled)
	assert.Equal(t, 1, result.Failed)

	// The refresh still completed and advanced the cadence marker.
	last, err := store.LastRefreshAt()
	require.NoError(t, err)
	assert.Equal(t, testNow, last)

	entries, err := store.All()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	_, ok := entries["b|before_start"]
	assert.False(t, ok)
}

func TestRefreshReplacesStaleSchedule(t *testing.T) {
	source := &fakeSource{pending: []model.PendingReminder{
		reminderAt("fresh|before_start", testNow.Add(time.Hour)),
	}}
	e, sink, store := newTestEngine(t, source)

	handle, err := sink.ScheduleAt(context.Background(), testNow.Add(10*time.Minute), reminderAt("stale|before_start", testNow.Add(10*time.Minute)))
	require.NoError(t, err)
	require.NoError(t, store.Put(model.ScheduledEntry{ReminderKey: "stale|before_start", Handle: handle}))

	_, err = e.Refresh(context.Background(), false)
	require.NoError(t, err)

	entries, err := store.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	_, ok := entries["fresh|before_start"]
	assert.True(t, ok)
	assert.Equal(t, 1, sink.count())
}

func TestRefreshDue(t *testing.T) {
	e, _, store := newTestEngine(t, nil)

	due, err := e.RefreshDue()
	require.NoError(t, err)
	assert.True(t, due, "never refreshed means due")

	require.NoError(t, store.SetLastRefreshAt(testNow.Add(-time.Hour)))
	due, err = e.RefreshDue()
	require.NoError(t, err)
	assert.False(t, due)

	require.NoError(t, store.SetLastRefreshAt(testNow.Add(-25*time.Hour)))
	due, err = e.RefreshDue()
	require.NoError(t, err)
	assert.True(t, due)
}

func TestScheduleOne(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	reminder := reminderAt("t1|before_start", testNow.Add(2*time.Hour))
	outcome, err := e.ScheduleOne(context.Background(), reminder)
	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduled, outcome)
	assert.Equal(t, 1, sink.count())

	entry, found, err := store.Get("t1|before_start")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, reminder.FireAt, entry.FireAt)
}

func TestScheduleOneReplaceIsIdempotent(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	reminder := reminderAt("t1|before_start", testNow.Add(2*time.Hour))
	_, err := e.ScheduleOne(context.Background(), reminder)
	require.NoError(t, err)
	first, _, err := store.Get("t1|before_start")
	require.NoError(t, err)

	// Edit moves the fire time; rescheduling must replace, not add.
	reminder.FireAt = testNow.Add(3 * time.Hour)
	outcome, err := e.ScheduleOne(context.Background(), reminder)
	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduled, outcome)

	assert.Equal(t, 1, sink.count())
	second, found, err := store.Get("t1|before_start")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, first.Handle, second.Handle)
	assert.Equal(t, testNow.Add(3*time.Hour), second.FireAt)
}

func TestScheduleOnePastIsDeferred(t *testing.T) {
	e, sink, _ := newTestEngine(t, nil)

	outcome, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(-time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, outcome)
	assert.Equal(t, 0, sink.count())
}

func TestScheduleOneBeyondWindowIsDeferredAndDropsStale(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	reminder := reminderAt("t1|before_start", testNow.Add(2*time.Hour))
	_, err := e.ScheduleOne(context.Background(), reminder)
	require.NoError(t, err)

	// Edit pushes the reminder past the window: the stale live entry
	// must go away, and the outcome is deferred, not failed.
	reminder.FireAt = testNow.Add(61 * 24 * time.Hour)
	outcome, err := e.ScheduleOne(context.Background(), reminder)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, outcome)
	assert.Equal(t, 0, sink.count())
	_, found, err := store.Get("t1|before_start")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestScheduleOnePermissionDenied(t *testing.T) {
	e, sink, _ := newTestEngine(t, nil)
	sink.permission = false

	outcome, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(time.Hour)))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
}

func TestScheduleOneStoreFailureRollsBackSink(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)
	store.putErr = fmt.Errorf("disk full")

	outcome, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(time.Hour)))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)
	assert.Equal(t, 0, sink.count())
}

func TestCancelOne(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	_, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, e.CancelOne(context.Background(), "t1|before_start"))
	assert.Equal(t, 0, sink.count())
	_, found, err := store.Get("t1|before_start")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCancelOneMissingKeyIsNoOp(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	assert.NoError(t, e.CancelOne(context.Background(), "never-scheduled|before_start"))
}

func TestCancelOneToleratesSinkDroppedHandle(t *testing.T) {
	e, sink, store := newTestEngine(t, nil)

	_, err := e.ScheduleOne(context.Background(), reminderAt("t1|before_start", testNow.Add(time.Hour)))
	require.NoError(t, err)

	// The platform evicted the entry behind our back.
	entry, _, err := store.Get("t1|before_start")
	require.NoError(t, err)
	sink.drop(entry.Handle)

	require.NoError(t, e.CancelOne(context.Background(), "t1|before_start"))
	_, found, err := store.Get("t1|before_start")
	require.NoError(t, err)
	assert.False(t, found)
}
