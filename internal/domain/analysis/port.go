package analysis

import "context"

// Repository port (persistence for completed analyses)
type Repository interface {
	Insert(ctx context.Context, r *Record) (RecordID, error)
	// ListByUser returns the user's records, newest analysis first; ties keep the later insert first.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
}

// ArtifactStore port (binary storage for uploaded audio)
type ArtifactStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	ArtifactReader
}

// ArtifactReader reads a stored artifact back. Classifiers that inspect the audio depend on it.
type ArtifactReader interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// ClassifyRequest is the classifier input.
type ClassifyRequest struct {
	Artifact AudioArtifact
	Machine  MachineType
}

// Classifier port. Implementations may be slow or remote and must honour ctx.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassificationResult, error)
}
