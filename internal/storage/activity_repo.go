package storage

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coachkit/traincue/internal/model"
)

// ActivityRepo provides operations for Activity entities.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new activity repository.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Create creates a new activity with a generated key.
func (r *ActivityRepo) Create(activity *model.Activity) error {
	if activity.Key == "" {
		activity.Key = model.GenerateActivityKey(uuid.New().String())
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	return r.db.Set(activity)
}

// Get retrieves an activity by key.
func (r *ActivityRepo) Get(key string) (*model.Activity, error) {
	activity := &model.Activity{}
	if err := r.db.Get(key, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// GetByShortID retrieves an activity by short ID prefix match.
func (r *ActivityRepo) GetByShortID(shortID string) (*model.Activity, error) {
	activities, err := r.List()
	if err != nil {
		return nil, err
	}

	var matches []*model.Activity
	for _, a := range activities {
		if matchesShortID(a.Key, model.PrefixActivity, shortID) {
			matches = append(matches, a)
		}
	}

	if len(matches) == 0 {
		return nil, ErrKeyNotFound
	}
	if len(matches) > 1 {
		return nil, &AmbiguousMatchError{Matches: len(matches)}
	}
	return matches[0], nil
}

// List retrieves all activities sorted by start time.
func (r *ActivityRepo) List() ([]*model.Activity, error) {
	activities, err := GetAllByPrefix(r.db, model.PrefixActivity+":", func() *model.Activity {
		return &model.Activity{}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(activities, func(i, j int) bool {
		if activities[i].Date != activities[j].Date {
			return activities[i].Date < activities[j].Date
		}
		return activities[i].Start < activities[j].Start
	})
	return activities, nil
}

// ListBetween retrieves activities whose start instant falls in [from, to).
func (r *ActivityRepo) ListBetween(from, to time.Time) ([]*model.Activity, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Activity
	for _, a := range all {
		start, err := a.StartAt()
		if err != nil {
			continue
		}
		if !start.Before(from) && start.Before(to) {
			result = append(result, a)
		}
	}
	return result, nil
}

// ListExternal retrieves activities imported from a calendar feed.
func (r *ActivityRepo) ListExternal() ([]*model.Activity, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Activity
	for _, a := range all {
		if a.External {
			result = append(result, a)
		}
	}
	return result, nil
}

// Update updates an existing activity.
func (r *ActivityRepo) Update(activity *model.Activity) error {
	return r.db.Set(activity)
}

// Delete removes an activity by key.
func (r *ActivityRepo) Delete(key string) error {
	return r.db.Delete(key)
}

// Exists checks if an activity exists.
func (r *ActivityRepo) Exists(key string) (bool, error) {
	return r.db.Exists(key)
}

// AmbiguousMatchError is returned when multiple records match a short ID.
type AmbiguousMatchError struct {
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return "multiple records match the given ID"
}

// matchesShortID checks whether a short ID is a prefix of the key's UUID part.
func matchesShortID(key, prefix, shortID string) bool {
	uuidPart := key
	if len(key) > len(prefix)+1 {
		uuidPart = key[len(prefix)+1:]
	}
	return len(shortID) > 0 && len(shortID) <= len(uuidPart) && uuidPart[:len(shortID)] == shortID
}
