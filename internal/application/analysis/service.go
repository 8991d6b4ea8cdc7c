package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/acoustic-health/internal/application"
	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/domain/failures"
)

// DefaultClassifyTimeout bounds a single classifier call.
const DefaultClassifyTimeout = 30 * time.Second

// Recorder receives workflow outcomes (metrics). Optional.
type Recorder interface {
	ObserveClassify(d time.Duration, err error)
	RecordAnalysis(risk domain.RiskLevel)
	RecordFailure(phase string)
}

// Service sequences intake -> classification -> persistence.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	Repo       domain.Repository
	Artifacts  domain.ArtifactStore
	Classifier domain.Classifier
	Failures   failures.Repository // optional orphan ledger
	Clock      application.Clock
	Logger     *slog.Logger
	Metrics    Recorder

	// ClassifyTimeout bounds the classifier call; zero means DefaultClassifyTimeout.
	ClassifyTimeout time.Duration

	stampMu   sync.Mutex
	lastStamp map[string]int64 // user id -> last artifact epoch millis
}

// AnalyzeCommand is one submission from an operator.
type AnalyzeCommand struct {
	UserID      string
	Filename    string
	ContentType string
	Data        []byte
	MachineType string
}

// Analyze stores the sample, classifies it and persists the record.
//
// The three I/O steps run on a context detached from the caller's cancellation: once
// validation passes, an abandoned request still finishes and may persist a record.
// No step is retried and a stored artifact is never rolled back.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Record, error) {
	machine, err := s.validate(cmd)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	log := s.logger().With("user_id", cmd.UserID, "machine_type", string(machine))

	now := s.now()
	artifact := domain.AudioArtifact{
		UserID:       cmd.UserID,
		Path:         domain.ArtifactPath(cmd.UserID, s.artifactStamp(cmd.UserID, now), cmd.Filename),
		OriginalName: domain.SafeFilename(cmd.Filename),
		Size:         int64(len(cmd.Data)),
		ContentType:  domain.ContentTypeFor(cmd.Filename, cmd.ContentType),
	}
	log = log.With("path", artifact.Path)

	if err := s.Artifacts.Put(ctx, artifact.Path, cmd.Data, artifact.ContentType); err != nil {
		log.Warn("artifact upload failed", "error", err)
		return nil, &domain.ArtifactStoreError{Path: artifact.Path, Err: err}
	}
	log.Debug("artifact stored", "size", artifact.Size)

	res, err := s.classify(ctx, artifact, machine)
	if err != nil {
		log.Warn("classification failed, artifact orphaned", "error", err)
		s.recordFailure(ctx, artifact, machine, failures.PhaseClassify, err, nil)
		return nil, &domain.ClassifierError{Path: artifact.Path, Err: err}
	}

	rec := &domain.Record{
		ID:          domain.RecordID(uuid.New().String()),
		UserID:      cmd.UserID,
		MachineType: machine,
		AudioPath:   artifact.Path,
		HealthScore: res.HealthScore,
		RiskLevel:   res.RiskLevel,
		FaultType:   res.FaultType,
		Confidence:  res.Confidence,
		AnalyzedAt:  now,
	}
	id, err := s.Repo.Insert(ctx, rec)
	if err != nil {
		// the computed result is lost; say so loudly
		log.Error("analysis result lost: record insert failed",
			"error", err,
			"health_score", res.HealthScore,
			"risk_level", string(res.RiskLevel),
			"fault_type", res.FaultType,
			"confidence", res.Confidence,
		)
		s.recordFailure(ctx, artifact, machine, failures.PhasePersist, err, &res)
		return nil, &domain.PersistenceError{Path: artifact.Path, Result: res, Err: err}
	}
	if id != "" {
		rec.ID = id
	}

	if s.Metrics != nil {
		s.Metrics.RecordAnalysis(rec.RiskLevel)
	}
	log.Info("analysis recorded",
		"record_id", string(rec.ID),
		"health_score", rec.HealthScore,
		"risk_level", string(rec.RiskLevel),
	)
	return rec, nil
}

// artifactStamp returns now, or one millisecond past the user's previous stamp when
// the clock has not advanced, so a user's artifact paths never repeat.
func (s *Service) artifactStamp(userID string, now time.Time) time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	if s.lastStamp == nil {
		s.lastStamp = make(map[string]int64)
	}
	ms := now.UnixMilli()
	if last, ok := s.lastStamp[userID]; ok && ms <= last {
		ms = last + 1
	}
	s.lastStamp[userID] = ms
	return time.UnixMilli(ms).UTC()
}

func (s *Service) validate(cmd AnalyzeCommand) (domain.MachineType, error) {
	if cmd.UserID == "" {
		return "", &domain.ValidationError{Field: "user_id", Reason: "is required"}
	}
	if len(cmd.Data) == 0 {
		return "", &domain.ValidationError{Field: "file", Reason: "is required and must not be empty"}
	}
	return domain.ParseMachineType(cmd.MachineType)
}

func (s *Service) classify(ctx context.Context, artifact domain.AudioArtifact, machine domain.MachineType) (domain.ClassificationResult, error) {
	timeout := s.ClassifyTimeout
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := s.Classifier.Classify(cctx, domain.ClassifyRequest{Artifact: artifact, Machine: machine})
	if err == nil && cctx.Err() != nil {
		// a classifier that ignores ctx and returns late still counts as timed out
		err = cctx.Err()
	}
	if s.Metrics != nil {
		s.Metrics.ObserveClassify(time.Since(start), err)
	}
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return domain.Normalize(res), nil
}

func (s *Service) recordFailure(ctx context.Context, a domain.AudioArtifact, m domain.MachineType, phase failures.Phase, cause error, res *domain.ClassificationResult) {
	if s.Metrics != nil {
		s.Metrics.RecordFailure(string(phase))
	}
	if s.Failures == nil {
		return
	}
	details := "{}"
	if res != nil {
		if b, err := json.Marshal(res); err == nil {
			details = string(b)
		}
	}
	f := &failures.Failure{
		UserID:      a.UserID,
		AudioPath:   a.Path,
		MachineType: string(m),
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: details,
		CreatedAt:   s.now(),
	}
	if err := s.Failures.Save(ctx, f); err != nil {
		s.logger().Error("failure ledger write failed", "path", a.Path, "phase", string(phase), "error", err)
	}
}

// List returns the user's records, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Record, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "is required"}
	}
	return s.Repo.ListByUser(ctx, userID)
}

// Summary aggregates the user's history for the dashboard.
func (s *Service) Summary(ctx context.Context, userID string) (domain.Summary, error) {
	recs, err := s.List(ctx, userID)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(recs), nil
}

// Trend returns the daily average score over the last `days` days.
func (s *Service) Trend(ctx context.Context, userID string, days int) ([]domain.TrendPoint, error) {
	recs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.Trend(recs, s.now(), days), nil
}

// Orphans lists artifacts recorded in the failure ledger for the user.
func (s *Service) Orphans(ctx context.Context, userID string, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return nil, nil
	}
	return s.Failures.ListByUser(ctx, userID, limit)
}

// IsResultLost reports whether err means a computed result was not saved.
func IsResultLost(err error) bool {
	var pe *domain.PersistenceError
	return errors.As(err, &pe)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
