package storage

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/coachkit/traincue/internal/logging"
	"github.com/coachkit/traincue/internal/model"
)

// Storage keys for the schedule store. The whole reminderKey->entry mapping
// lives under one opaque key, the refresh marker under another.
const (
	keyScheduleEntries = "schedule:entries"
	keyLastRefresh     = "schedule:last_refresh"
)

// nowFunc is stubbed in tests.
var nowFunc = time.Now

// EntryStore owns the durable reminderKey -> ScheduledEntry mapping. It is
// the only writer of that mapping; the platform sink owns the actual
// scheduled-notification set, and the two drift apart until reconciled.
//
// A corrupt persisted payload is treated as an empty mapping with a logged
// warning; the next refresh rebuilds the schedule from source data.
type EntryStore struct {
	db *DB
	mu sync.Mutex
}

// NewEntryStore creates an entry store over the given database.
func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db}
}

// load reads the mapping, decoding corruption to an empty map.
func (s *EntryStore) load() (map[string]model.ScheduledEntry, error) {
	data, err := s.db.GetBytes(keyScheduleEntries)
	if err != nil {
		if IsErrKeyNotFound(err) {
			return map[string]model.ScheduledEntry{}, nil
		}
		return nil, err
	}

	entries := map[string]model.ScheduledEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.Warn("corrupt schedule entries, treating as empty",
			logging.KeyError, err)
		return map[string]model.ScheduledEntry{}, nil
	}
	return entries, nil
}

// save writes the whole mapping back.
func (s *EntryStore) save(entries map[string]model.ScheduledEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.SetBytes(keyScheduleEntries, data)
}

// Put stores an entry, replacing any previous entry for the same reminder key.
func (s *EntryStore) Put(entry model.ScheduledEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[entry.ReminderKey] = entry
	return s.save(entries)
}

// Get retrieves the entry for a reminder key.
func (s *EntryStore) Get(reminderKey string) (model.ScheduledEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return model.ScheduledEntry{}, false, err
	}
	entry, ok := entries[reminderKey]
	return entry, ok, nil
}

// Remove deletes the entry for a reminder key. Removing a missing key is a no-op.
func (s *EntryStore) Remove(reminderKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[reminderKey]; !ok {
		return nil
	}
	delete(entries, reminderKey)
	return s.save(entries)
}

// Clear removes all entries.
func (s *EntryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[string]model.ScheduledEntry{})
}

// All returns a copy of the full mapping.
func (s *EntryStore) All() (map[string]model.ScheduledEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// LastRefreshAt returns when the last full refresh completed, zero if never.
func (s *EntryStore) LastRefreshAt() (time.Time, error) {
	data, err := s.db.GetBytes(keyLastRefresh)
	if err != nil {
		if IsErrKeyNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		logging.Warn("corrupt last refresh marker, treating as never refreshed",
			logging.KeyError, err)
		return time.Time{}, nil
	}
	return t, nil
}

// SetLastRefreshAt records the completion time of a full refresh.
func (s *EntryStore) SetLastRefreshAt(t time.Time) error {
	return s.db.SetBytes(keyLastRefresh, []byte(t.Format(time.RFC3339)))
}
