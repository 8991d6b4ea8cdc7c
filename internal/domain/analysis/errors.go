package analysis

import (
	"errors"
	"fmt"
)

// ErrNotWAV is returned by classifiers that can only decode WAV payloads.
var ErrNotWAV = errors.New("artifact is not a valid WAV file")

// ErrQuotaExceeded indicates the classifier provider refused the call for quota
// or rate reasons (HTTP 429).
var ErrQuotaExceeded = errors.New("classifier quota exceeded")

// ValidationError indicates bad input caught before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// ArtifactStoreError: the upload failed, nothing was recorded.
type ArtifactStoreError struct {
	Path string
	Err  error
}

func (e *ArtifactStoreError) Error() string {
	return fmt.Sprintf("artifact store: put %s: %v", e.Path, e.Err)
}

func (e *ArtifactStoreError) Unwrap() error { return e.Err }

// ClassifierError: classification failed or timed out. The artifact at Path is left
// behind as an orphan.
type ClassifierError struct {
	Path string
	Err  error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier: %s: %v", e.Path, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// PersistenceError: the result was computed but could not be stored. Result carries
// what was lost so callers can surface it.
type PersistenceError struct {
	Path   string
	Result ClassificationResult
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: record for %s not saved (score=%d risk=%s): %v",
		e.Path, e.Result.HealthScore, e.Result.RiskLevel, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
