package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/acoustic-health/internal/domain/failures"
)

// FailureRepository is an in-memory failure ledger.
type FailureRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []*failures.Failure
}

func NewFailureRepository() *FailureRepository { return &FailureRepository{} }

func (m *FailureRepository) Save(ctx context.Context, f *failures.Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *f
	cp.ID = m.nextID
	m.items = append(m.items, &cp)
	return nil
}

func (m *FailureRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*failures.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*failures.Failure
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if m.items[i].UserID == userID {
			cp := *m.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
