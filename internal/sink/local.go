// Package sink implements the local scheduled-notification facility. It
// persists timed entries in the database under an opaque handle, enforces
// the platform slot cap, and hands due entries to the daemon for webhook
// delivery.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachkit/traincue/internal/config"
	"github.com/coachkit/traincue/internal/engine"
	"github.com/coachkit/traincue/internal/errors"
	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/storage"
)

// keyPrefix namespaces sink records in the database.
const keyPrefix = "sched:"

// record is the persisted form of one scheduled entry.
type record struct {
	Handle    string                `json:"handle"`
	FireAt    time.Time             `json:"fire_at"`
	Reminder  model.PendingReminder `json:"reminder"`
	CreatedAt time.Time             `json:"created_at"`
}

// Local is a database-backed engine.NotificationSink. Delivery permission
// means at least one enabled webhook exists; with nowhere to deliver,
// scheduling would only build up entries that fire into the void.
type Local struct {
	db       *storage.DB
	webhooks *storage.WebhookRepo
	cfg      config.SinkConfig

	// mu serializes writes so the slot cap check and the insert are not
	// racy across concurrent schedulers.
	mu sync.Mutex
}

// New creates a local sink over the given database.
func New(db *storage.DB, webhooks *storage.WebhookRepo, cfg config.SinkConfig) *Local {
	return &Local{db: db, webhooks: webhooks, cfg: cfg}
}

// ScheduleAt persists a timed entry and returns its handle. Exceeding the
// slot cap returns ErrSinkCapacity.
func (l *Local) ScheduleAt(ctx context.Context, fireAt time.Time, reminder model.PendingReminder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	keys, err := l.db.ListByPrefix(keyPrefix)
	if err != nil {
		return "", fmt.Errorf("counting scheduled entries: %w", err)
	}
	maxSlots := l.cfg.MaxSlots
	if maxSlots <= 0 {
		maxSlots = 64
	}
	if len(keys) >= maxSlots {
		return "", fmt.Errorf("%w: %d of %d slots in use", errors.ErrSinkCapacity, len(keys), maxSlots)
	}

	rec := record{
		Handle:    uuid.New().String(),
		FireAt:    fireAt,
		Reminder:  reminder,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := l.db.SetBytes(keyPrefix+rec.Handle, data); err != nil {
		return "", err
	}
	return rec.Handle, nil
}

// Cancel removes the entry for a handle. An unknown handle returns
// ErrHandleNotFound.
func (l *Local) Cancel(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := l.db.Exists(keyPrefix + handle)
	if err != nil {
		return err
	}
	if !exists {
		return errors.ErrHandleNotFound
	}
	return l.db.Delete(keyPrefix + handle)
}

// CancelAll removes every scheduled entry.
func (l *Local) CancelAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	keys, err := l.db.ListByPrefix(keyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := l.db.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// ListScheduled returns the live scheduled set. An unreadable record is
// skipped with a warning rather than failing the listing.
func (l *Local) ListScheduled(ctx context.Context) ([]engine.SinkEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := l.db.ListByPrefix(keyPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]engine.SinkEntry, 0, len(keys))
	for _, key := range keys {
		data, err := l.db.GetBytes(key)
		if err != nil {
			if storage.IsErrKeyNotFound(err) {
				continue
			}
			return nil, err
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			logging.Warn("corrupt sink record, skipping",
				logging.KeyHandle, key, logging.KeyError, err)
			continue
		}
		out = append(out, engine.SinkEntry{
			Handle:   rec.Handle,
			FireAt:   rec.FireAt,
			Reminder: rec.Reminder,
		})
	}
	return out, nil
}

// HasPermission reports whether at least one enabled webhook exists.
func (l *Local) HasPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	enabled, err := l.webhooks.ListEnabled()
	if err != nil {
		return false, err
	}
	return len(enabled) > 0, nil
}

// PopDue removes and returns every entry whose fire time is at or before
// now. The daemon calls this each tick and dispatches what comes back;
// removal happens before delivery so a crash mid-dispatch drops a
// notification instead of repeating it forever.
func (l *Local) PopDue(ctx context.Context, now time.Time) ([]engine.SinkEntry, error) {
	entries, err := l.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var due []engine.SinkEntry
	for _, entry := range entries {
		if entry.FireAt.After(now) {
			continue
		}
		if err := l.db.Delete(keyPrefix + entry.Handle); err != nil {
			logging.Warn("failed to pop due entry",
				logging.KeyHandle, entry.Handle, logging.KeyError, err)
			continue
		}
		due = append(due, entry)
	}
	return due, nil
}
