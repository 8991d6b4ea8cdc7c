package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/acoustic-health/internal/domain/failures"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *failures.Failure) error {
	const q = `
INSERT INTO audio_analysis_failures
  (user_id, audio_path, machine_type, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	details := f.DetailsJSON
	if details == "" {
		details = "{}"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.UserID), stringOrDash(f.AudioPath), stringOrDash(f.MachineType),
		stringOrDash(string(f.Phase)), stringOrDash(f.Message), details, created,
	)
	return err
}

func (r *FailureRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*failures.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, user_id, audio_path, machine_type, phase, message, details_json, created_at
FROM audio_analysis_failures
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*failures.Failure
	for rows.Next() {
		var f failures.Failure
		if err := rows.Scan(&f.ID, &f.UserID, &f.AudioPath, &f.MachineType, &f.Phase, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
