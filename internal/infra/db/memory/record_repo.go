package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

var ErrDuplicateID = errors.New("memory: duplicate record id")

// RecordRepository keeps records in process memory. Used for local runs and tests.
type RecordRepository struct {
	mu      sync.RWMutex
	records []*domain.Record
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{}
}

// Insert appends a copy of r. Duplicate ids are rejected.
func (m *RecordRepository) Insert(ctx context.Context, r *domain.Record) (domain.RecordID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.ID == r.ID {
			return "", ErrDuplicateID
		}
	}
	cp := *r
	m.records = append(m.records, &cp)
	return cp.ID, nil
}

// ListByUser returns copies ordered by AnalyzedAt desc, later inserts first on ties.
func (m *RecordRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*domain.Record, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	// out is already newest-insert first, so a stable sort keeps that on ties
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AnalyzedAt.After(out[j].AnalyzedAt)
	})
	return out, nil
}
