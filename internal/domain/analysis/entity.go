package analysis

import (
	"strings"
	"time"
)

// RecordID identifier type
type RecordID string

// MachineType enum
type MachineType string

const (
	MachineCompressor   MachineType = "Compressor"
	MachinePump         MachineType = "Pump"
	MachineFan          MachineType = "Fan"
	MachineMotor        MachineType = "Motor"
	MachineTurbine      MachineType = "Turbine"
	MachineConveyorBelt MachineType = "Conveyor Belt"
)

// MachineTypes returns the accepted machine categories in display order.
func MachineTypes() []MachineType {
	return []MachineType{
		MachineCompressor,
		MachinePump,
		MachineFan,
		MachineMotor,
		MachineTurbine,
		MachineConveyorBelt,
	}
}

// ParseMachineType matches s case-insensitively against the known categories
// and returns the canonical spelling.
func ParseMachineType(s string) (MachineType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "machine_type", Reason: "is required"}
	}
	for _, m := range MachineTypes() {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", &ValidationError{Field: "machine_type", Reason: "unknown machine type " + s}
}

// RiskLevel enum
type RiskLevel string

const (
	RiskHealthy  RiskLevel = "healthy"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// Fault labels emitted by the reference classifier.
const (
	NoFaultDetected        = "No Fault Detected"
	FaultBearingWear       = "Bearing Wear"
	FaultShaftMisalignment = "Shaft Misalignment"
)

// AudioArtifact is an immutable reference to an uploaded sample in the artifact store.
type AudioArtifact struct {
	UserID       string `json:"user_id"`
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
}

// ClassificationResult value object
type ClassificationResult struct {
	HealthScore int       `json:"health_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	FaultType   string    `json:"fault_type"`
	Confidence  float64   `json:"confidence"`
}

// Record is a persisted analysis owned by one user. Created once, never mutated.
type Record struct {
	ID          RecordID    `json:"id"`
	UserID      string      `json:"user_id"`
	MachineType MachineType `json:"machine_type"`
	AudioPath   string      `json:"uploaded_audio_path"`
	HealthScore int         `json:"health_score"`
	RiskLevel   RiskLevel   `json:"risk_level"`
	FaultType   string      `json:"fault_type_prediction"`
	Confidence  float64     `json:"confidence_score"`
	AnalyzedAt  time.Time   `json:"analysis_date"`
}

// ResultView is what callers get back for immediate display.
type ResultView struct {
	HealthScore int       `json:"healthScore"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	FaultType   string    `json:"faultType"`
	Confidence  float64   `json:"confidence"`
}

func (r *Record) View() ResultView {
	return ResultView{
		HealthScore: r.HealthScore,
		RiskLevel:   r.RiskLevel,
		FaultType:   r.FaultType,
		Confidence:  r.Confidence,
	}
}
