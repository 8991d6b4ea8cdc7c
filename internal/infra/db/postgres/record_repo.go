package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

type RecordRepository struct{ db *sql.DB }

func NewRecordRepository(db *sql.DB) *RecordRepository { return &RecordRepository{db: db} }

// Insert writes a new analysis record.
func (r *RecordRepository) Insert(ctx context.Context, rec *domain.Record) (domain.RecordID, error) {
	const q = `
INSERT INTO audio_analysis_history
  (id, user_id, machine_type, uploaded_audio_path, health_score, risk_level,
   fault_type_prediction, confidence_score, analysis_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	analyzed := rec.AnalyzedAt
	if analyzed.IsZero() {
		analyzed = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, string(rec.MachineType), stringOrDash(rec.AudioPath),
		rec.HealthScore, string(rec.RiskLevel),
		stringOrDash(rec.FaultType), rec.Confidence, analyzed,
	); err != nil {
		return "", fmt.Errorf("inserting analysis record: %w", err)
	}
	return rec.ID, nil
}

// ListByUser returns the user's records, newest first; seq breaks ties by insertion order.
func (r *RecordRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	const q = `
SELECT id, user_id, machine_type, uploaded_audio_path, health_score, risk_level,
       fault_type_prediction, confidence_score, analysis_date
FROM audio_analysis_history
WHERE user_id=$1
ORDER BY analysis_date DESC, seq DESC;`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying analysis records: %w", err)
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.MachineType, &rec.AudioPath, &rec.HealthScore, &rec.RiskLevel,
			&rec.FaultType, &rec.Confidence, &rec.AnalyzedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
