package facematch

import (
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/embedding"
)

// Engine scores pairs of unit embeddings. Lower scores mean more similar.
type Engine struct {
	Threshold float64
}

// NewEngine creates an engine; a non-positive threshold selects the default.
func NewEngine(threshold float64) Engine {
	if threshold <= 0 {
		threshold = constants.DefaultRecognitionThreshold
	}
	return Engine{Threshold: threshold}
}

// Compare returns the squared Euclidean distance between two embeddings.
func (e Engine) Compare(a, b embedding.Embedding) float64 {
	return embedding.SquaredDistance(a, b)
}

// IsMatch reports whether a pairwise score means the same person.
// The boundary value counts as a match.
func (e Engine) IsMatch(score float64) bool {
	return score <= e.Threshold
}

// withinThreshold is the registry's strict test used by Register and Recognize.
func (e Engine) withinThreshold(score float64) bool {
	return score < e.Threshold
}
