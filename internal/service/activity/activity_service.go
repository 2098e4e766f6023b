package activity

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"bustrack/internal/model"
	pg "bustrack/internal/postgres"
	"bustrack/internal/util"
)

const DefaultLogLimit = 30

// Store persists activity entries. Entries are append-only.
type Store interface {
	Append(ctx context.Context, entry *model.ActivityEntry) error
	// Recent returns up to limit entries ordered by ts descending,
	// filtered by exact actor match when actorID is non-empty.
	Recent(ctx context.Context, actorID string, limit int) ([]*model.ActivityEntry, error)
}

// pgStore persists entries through the global GORM connection
type pgStore struct{}

// NewPGStore returns the PostgreSQL-backed store
func NewPGStore() Store {
	return &pgStore{}
}

func (s *pgStore) Append(ctx context.Context, entry *model.ActivityEntry) error {
	return pg.GetDB().WithContext(ctx).Create(entry).Error
}

func (s *pgStore) Recent(ctx context.Context, actorID string, limit int) ([]*model.ActivityEntry, error) {
	var entries []*model.ActivityEntry
	q := pg.GetDB().WithContext(ctx).Order("ts desc").Limit(limit)
	if actorID != "" {
		q = q.Where("actor_id = ?", actorID)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// ActivityService records dashboard events: roster changes, session
// starts and stops, registrations.
type ActivityService struct {
	store Store
	now   func() time.Time
}

var (
	activityServiceInstance *ActivityService
	activityServiceOnce     sync.Once
)

// GetActivityService returns the singleton instance backed by PostgreSQL
func GetActivityService() *ActivityService {
	activityServiceOnce.Do(func() {
		activityServiceInstance = NewActivityService(NewPGStore())
	})
	return activityServiceInstance
}

// NewActivityService creates a service over the given store
func NewActivityService(store Store) *ActivityService {
	return &ActivityService{store: store, now: time.Now}
}

// Record appends one entry. Logging must never break the action it
// describes, so failures are logged and swallowed.
func (s *ActivityService) Record(ctx context.Context, action, actorID string, meta map[string]any) {
	metaJSON := ""
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metaJSON = string(b)
		}
	}

	entry := &model.ActivityEntry{
		ID:      util.ShortUUID(),
		Action:  action,
		ActorID: actorID,
		Meta:    metaJSON,
		TS:      s.now(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		log.Printf("Failed to record activity %q: %v", action, err)
	}
}

// Recent returns the latest entries, newest first
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]*model.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.store.Recent(ctx, "", limit)
}

// RecentFor returns the latest entries for one actor, newest first
func (s *ActivityService) RecentFor(ctx context.Context, actorID string, limit int) ([]*model.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.store.Recent(ctx, actorID, limit)
}
