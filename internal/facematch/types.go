// Package facematch decides whether two face embeddings belong to the same
// person and keeps the in-memory registry of known identities.
package facematch

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/embedding"
)

var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrDuplicateIdentity     = errors.New("identity already registered")
	ErrEmptyIdentity         = errors.New("identity must not be empty")
	ErrDimensionMismatch     = errors.New("embedding dimension does not match registry")
)

// Outcome is the result of a registration attempt.
type Outcome string

const (
	OutcomeSuccess               Outcome = "success"                 // Face enrolled
	OutcomeNoFaceDetected        Outcome = "no_face_detected"        // Image had no face
	OutcomeMultipleFacesDetected Outcome = "multiple_faces_detected" // Image had more than one face
	OutcomeDuplicateIdentity     Outcome = "duplicate_identity"      // Face or label already known
)

// Code returns the numeric status used by older clients (0 success, 1 no
// face, 2 multiple faces, 3 duplicate).
func (o Outcome) Code() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeNoFaceDetected:
		return 1
	case OutcomeMultipleFacesDetected:
		return 2
	case OutcomeDuplicateIdentity:
		return 3
	default:
		return -1
	}
}

// Err returns the sentinel error for a non-success outcome.
func (o Outcome) Err() error {
	switch o {
	case OutcomeNoFaceDetected:
		return ErrNoFaceDetected
	case OutcomeMultipleFacesDetected:
		return ErrMultipleFacesDetected
	case OutcomeDuplicateIdentity:
		return ErrDuplicateIdentity
	default:
		return nil
	}
}

// FaceRecord is a registered identity. Records are never mutated after
// insertion.
type FaceRecord struct {
	ID        uuid.UUID           `json:"id"`
	Identity  string              `json:"identity"`
	Embedding embedding.Embedding `json:"-"`
	Source    string              `json:"source,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Match is a registry record scored against a query embedding.
type Match struct {
	ID       uuid.UUID `json:"id"`
	Identity string    `json:"identity"`
	Score    float64   `json:"score"`
}
