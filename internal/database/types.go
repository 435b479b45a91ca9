package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// StoredFace represents a registered face stored in the database
type StoredFace struct {
	ID        uuid.UUID `json:"id"`
	Identity  string    `json:"identity"`            // label as given at registration
	Label     string    `json:"label"`               // normalized identity, unique per store
	Embedding []float32 `json:"embedding,omitempty"` // unit embedding
	BBox      []float64 `json:"bbox,omitempty"`      // [x1, y1, x2, y2] in source image pixels
	DetScore  float64   `json:"det_score"`
	Source    string    `json:"source,omitempty"`
	Model     string    `json:"model"`
	Dim       int       `json:"dim"`
	CreatedAt time.Time `json:"created_at"`
}

// FaceFromRecord converts a registry record into its stored form.
func FaceFromRecord(rec facematch.FaceRecord, model string) StoredFace {
	return StoredFace{
		ID:        rec.ID,
		Identity:  rec.Identity,
		Label:     facematch.NormalizeIdentity(rec.Identity),
		Embedding: append([]float32(nil), rec.Embedding...),
		Source:    rec.Source,
		Model:     model,
		Dim:       len(rec.Embedding),
		CreatedAt: rec.CreatedAt,
	}
}

// Record converts a stored face back into a registry record.
func (f StoredFace) Record() facematch.FaceRecord {
	return facematch.FaceRecord{
		ID:        f.ID,
		Identity:  f.Identity,
		Embedding: embedding.Embedding(f.Embedding),
		Source:    f.Source,
		CreatedAt: f.CreatedAt,
	}
}

// Records converts stored faces into registry records.
func Records(faces []StoredFace) []facematch.FaceRecord {
	out := make([]facematch.FaceRecord, len(faces))
	for i, f := range faces {
		out[i] = f.Record()
	}
	return out
}
