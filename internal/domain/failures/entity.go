package failures

import "time"

// Phase names where an analysis can fail after the artifact was stored.
type Phase string

const (
	PhaseClassify Phase = "classify"
	PhasePersist  Phase = "persist"
)

// Failure is a ledger entry for an artifact that never got a record (an orphan).
type Failure struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	AudioPath   string    `json:"audio_path"`
	MachineType string    `json:"machine_type,omitempty"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
