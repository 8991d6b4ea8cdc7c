package history

import (
	"context"
	"strings"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

// Service answers history searches over a user's records.
type Service struct {
	Repo domain.Repository
}

func NewService(repo domain.Repository) *Service {
	return &Service{Repo: repo}
}

// Query is one history search.
type Query struct {
	UserID string
	Text   string
	Risk   domain.RiskFilter
	Limit  int // <=0 means no limit
}

// Search fetches the user's snapshot and filters it. Wrap Repo with a snapshot cache
// to avoid a round-trip per keystroke.
func (s *Service) Search(ctx context.Context, q Query) ([]*domain.Record, error) {
	if q.UserID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "is required"}
	}
	recs, err := s.Repo.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	out := Filter(recs, q.Text, q.Risk)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Filter keeps records whose machine type contains text (case-insensitive; empty
// matches all) AND whose score falls in the risk tier. Order is preserved.
func Filter(records []*domain.Record, text string, risk domain.RiskFilter) []*domain.Record {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]*domain.Record, 0, len(records))
	for _, r := range records {
		if needle != "" && !strings.Contains(strings.ToLower(string(r.MachineType)), needle) {
			continue
		}
		if !risk.Matches(r.HealthScore) {
			continue
		}
		out = append(out, r)
	}
	return out
}
