package facematch

import (
	"math"
	"testing"

	"github.com/kozaktomas/face-matcher/internal/embedding"
)

// basis returns the unit vector along axis i.
func basis(i, dim int) embedding.Embedding {
	e := make(embedding.Embedding, dim)
	e[i] = 1
	return e
}

func TestEngine_Compare(t *testing.T) {
	engine := NewEngine(0)

	tests := []struct {
		name string
		a, b embedding.Embedding
		want float64
	}{
		{"same embedding", basis(0, 4), basis(0, 4), 0},
		{"orthogonal unit vectors", basis(0, 4), basis(1, 4), 2},
		{"opposite unit vectors", embedding.Embedding{1, 0}, embedding.Embedding{-1, 0}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Compare(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_IsMatch(t *testing.T) {
	engine := NewEngine(0)
	if engine.Threshold != 1.24 {
		t.Fatalf("default threshold = %v, want 1.24", engine.Threshold)
	}

	tests := []struct {
		score float64
		want  bool
	}{
		{0, true},
		{1.0, true},
		{1.24, true},
		{1.2401, false},
		{2.0, false},
	}

	for _, tt := range tests {
		if got := engine.IsMatch(tt.score); got != tt.want {
			t.Errorf("IsMatch(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestEngine_BoundaryAsymmetry(t *testing.T) {
	// pairwise decisions include the threshold, registry decisions exclude it
	engine := NewEngine(2.0)
	if !engine.IsMatch(2.0) {
		t.Error("IsMatch should accept a score equal to the threshold")
	}
	if engine.withinThreshold(2.0) {
		t.Error("registry test should reject a score equal to the threshold")
	}
}

func TestOutcome_Code(t *testing.T) {
	tests := []struct {
		outcome Outcome
		code    int
		err     error
	}{
		{OutcomeSuccess, 0, nil},
		{OutcomeNoFaceDetected, 1, ErrNoFaceDetected},
		{OutcomeMultipleFacesDetected, 2, ErrMultipleFacesDetected},
		{OutcomeDuplicateIdentity, 3, ErrDuplicateIdentity},
		{Outcome("bogus"), -1, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			if got := tt.outcome.Code(); got != tt.code {
				t.Errorf("Code() = %d, want %d", got, tt.code)
			}
			if got := tt.outcome.Err(); got != tt.err {
				t.Errorf("Err() = %v, want %v", got, tt.err)
			}
		})
	}
}
