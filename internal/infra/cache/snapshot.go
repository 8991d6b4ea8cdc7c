package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

const (
	DefaultTTL     = 30 * time.Second
	cleanupEvery   = 5 * time.Minute
	snapshotPrefix = "records:"
)

// SnapshotRepository decorates a Repository with a per-user snapshot of ListByUser.
// Insert drops the owner's snapshot after the write succeeds, so a user always reads
// their own writes.
type SnapshotRepository struct {
	next  domain.Repository
	cache *gocache.Cache
}

func NewSnapshotRepository(next domain.Repository, ttl time.Duration) *SnapshotRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotRepository{
		next:  next,
		cache: gocache.New(ttl, cleanupEvery),
	}
}

func (s *SnapshotRepository) Insert(ctx context.Context, r *domain.Record) (domain.RecordID, error) {
	id, err := s.next.Insert(ctx, r)
	if err != nil {
		return "", err
	}
	s.Invalidate(r.UserID)
	return id, nil
}

// ListByUser serves from the snapshot when present. Callers get a fresh slice and
// must not mutate the records.
func (s *SnapshotRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	if v, ok := s.cache.Get(snapshotPrefix + userID); ok {
		recs := v.([]*domain.Record)
		return append([]*domain.Record(nil), recs...), nil
	}
	recs, err := s.next.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(snapshotPrefix+userID, recs)
	return append([]*domain.Record(nil), recs...), nil
}

func (s *SnapshotRepository) Invalidate(userID string) {
	s.cache.Delete(snapshotPrefix + userID)
}
