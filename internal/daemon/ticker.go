package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coachkit/traincue/internal/config"
	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/notify"
	"github.com/coachkit/traincue/internal/sink"
)

// Ticker drives the daemon's periodic work on a cron schedule: every
// minute it pops due reminders off the sink and delivers them, every hour
// it runs a cadence-gated refresh followed by a reconciliation pass.
type Ticker struct {
	cron       *cron.Cron
	engine     *engine.Engine
	sink       *sink.Local
	dispatcher *notify.Dispatcher

	mu       sync.Mutex
	lastTick time.Time
	debug    bool
}

// NewTicker creates a ticker over the given collaborators.
func NewTicker(eng *engine.Engine, localSink *sink.Local, dispatcher *notify.Dispatcher) *Ticker {
	return &Ticker{
		cron:       cron.New(cron.WithSeconds()),
		engine:     eng,
		sink:       localSink,
		dispatcher: dispatcher,
	}
}

// SetDebug enables debug output.
func (t *Ticker) SetDebug(debug bool) {
	t.debug = debug
}

// Start registers the cron jobs and starts the scheduler.
func (t *Ticker) Start() error {
	t.lastTick = time.Now()

	_, err := t.cron.AddFunc("0 * * * * *", func() {
		t.minuteTick()
	})
	if err != nil {
		return fmt.Errorf("failed to add minute tick: %w", err)
	}

	_, err = t.cron.AddFunc("0 0 * * * *", func() {
		t.hourlyTick()
	})
	if err != nil {
		return fmt.Errorf("failed to add hourly tick: %w", err)
	}

	t.cron.Start()
	logging.Info("daemon ticker started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (t *Ticker) Stop() {
	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done()
	}
	logging.Info("daemon ticker stopped")
}

// minuteTick fires due reminders. A large gap since the previous tick
// means the machine was asleep; firing a backlog of stale reminders after
// wake would be noise, so the tick is skipped and the hourly refresh
// rebuilds the schedule instead.
func (t *Ticker) minuteTick() {
	t.mu.Lock()
	elapsed := time.Since(t.lastTick)
	t.lastTick = time.Now()
	t.mu.Unlock()

	if elapsed > config.Global.Daemon.SleepThreshold {
		logging.Warn("skipping stale tick after sleep gap",
			logging.KeyDuration, elapsed.Round(time.Second).String())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	due, err := t.sink.PopDue(ctx, time.Now())
	if err != nil {
		logging.Error("failed to pop due reminders", logging.KeyError, err)
		return
	}

	for _, entry := range due {
		results := t.dispatcher.SendReminder(ctx, entry.Reminder)
		for _, result := range results {
			if result.Error != nil {
				logging.Warn("reminder delivery failed",
					logging.KeyReminderKey, entry.Reminder.ReminderKey,
					logging.KeyWebhook, result.WebhookName,
					logging.KeyError, result.Error)
				continue
			}
			logging.Info("reminder delivered",
				logging.KeyReminderKey, entry.Reminder.ReminderKey,
				logging.KeyWebhook, result.WebhookName)
		}
	}
}

// hourlyTick refreshes the schedule window if due and prunes orphans.
func (t *Ticker) hourlyTick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := t.engine.Refresh(ctx, false)
	switch {
	case err != nil && errors.IsPermissionDenied(err):
		logging.Warn("refresh skipped, no enabled webhooks")
	case err != nil:
		logging.Error("scheduled refresh failed", logging.KeyError, err)
	case !result.Skipped:
		logging.Info("scheduled refresh complete",
			"scheduled", result.Scheduled,
			"failed", result.Failed,
			"deferred", result.Deferred)
	}

	if _, err := t.engine.Reconcile(ctx); err != nil {
		logging.Error("scheduled reconcile failed", logging.KeyError, err)
	}
}
