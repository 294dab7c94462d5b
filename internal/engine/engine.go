package engine

import (
	"context"
	"sync"
	"time"

	"github.com/coachkit/traincue/internal/config"
)

// Engine is the reminder scheduling service. All collaborators are
// injected so the engine carries no hidden global state and is testable
// with fakes for the sink, source, and store.
type Engine struct {
	sink   NotificationSink
	source ReminderSource
	store  EntryStore
	cfg    config.SchedulerConfig

	// now is replaced in tests.
	now func() time.Time

	// refreshMu serializes full refreshes: the clear-then-rebuild step
	// is not atomic and two interleaved refreshes would corrupt the
	// schedule. A second concurrent caller waits behind the first.
	refreshMu sync.Mutex

	// keyLocks serializes immediate operations per reminder key so two
	// replace operations never race on one key. Operations on different
	// keys proceed concurrently.
	keyLocksMu sync.Mutex
	keyLocks   map[string]*sync.Mutex
}

// New creates an engine with the given collaborators.
func New(sink NotificationSink, source ReminderSource, store EntryStore, cfg config.SchedulerConfig) *Engine {
	return &Engine{
		sink:     sink,
		source:   source,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// lockKey acquires the per-reminder-key lock and returns its unlock func.
func (e *Engine) lockKey(reminderKey string) func() {
	e.keyLocksMu.Lock()
	mu, ok := e.keyLocks[reminderKey]
	if !ok {
		mu = &sync.Mutex{}
		e.keyLocks[reminderKey] = mu
	}
	e.keyLocksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// sinkCtx bounds a single sink call so a wedged platform facility fails
// the item instead of hanging the whole operation.
func (e *Engine) sinkCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.cfg.SinkTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// windowEnd returns the far edge of the eager-scheduling window.
func (e *Engine) windowEnd(now time.Time) time.Time {
	return now.Add(e.cfg.Window())
}
