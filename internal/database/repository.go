package database

import (
	"context"
)

// FaceReader provides read-only access to registered faces
type FaceReader interface {
	// ListFaces returns every stored face ordered by creation time
	ListFaces(ctx context.Context) ([]StoredFace, error)
	// GetFace retrieves a face by identity label, returns nil if not found.
	// Labels are normalized before comparison (see facematch.NormalizeIdentity).
	GetFace(ctx context.Context, identity string) (*StoredFace, error)
	// Count returns the total number of faces stored
	Count(ctx context.Context) (int, error)
	// FindNearest returns up to limit faces ordered by squared Euclidean
	// distance to embedding, together with the distances
	FindNearest(ctx context.Context, embedding []float32, limit int) ([]StoredFace, []float64, error)
}

// FaceWriter provides write access to registered faces
type FaceWriter interface {
	FaceReader

	// SaveFace stores a face. A face with the same label is replaced.
	SaveFace(ctx context.Context, face StoredFace) error

	// DeleteFace removes the face with the given identity label and reports
	// whether it existed.
	DeleteFace(ctx context.Context, identity string) (bool, error)

	// ClearFaces removes all faces.
	ClearFaces(ctx context.Context) error
}
