package align

import (
	"fmt"
	"image"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/detection"
)

// Aligner produces a fixed-size, pose-normalized face crop.
type Aligner interface {
	Align(img image.Image, lm detection.Landmarks) (*image.RGBA, error)
}

// New returns the aligner for a method name ("precise" or "heuristic").
func New(method string, reference detection.Landmarks, size int) (Aligner, error) {
	switch method {
	case constants.AlignmentPrecise, "":
		return NewPrecise(reference, size), nil
	case constants.AlignmentHeuristic:
		return NewHeuristic(size, size), nil
	default:
		return nil, fmt.Errorf("unknown alignment method %q", method)
	}
}

// Precise aligns with a five-point least-squares similarity transform.
type Precise struct {
	reference detection.Landmarks
	size      int
}

// NewPrecise creates a precise aligner producing size x size faces. The
// reference landmarks are given for a 112x112 output and rescaled.
func NewPrecise(reference detection.Landmarks, size int) *Precise {
	if size <= 0 {
		size = constants.AlignedFaceSize
	}
	return &Precise{reference: ScaleReference(reference, size), size: size}
}

// Transform estimates the transform taking lm onto the reference layout.
func (p *Precise) Transform(lm detection.Landmarks) (SimilarityTransform, error) {
	return EstimateSimilarity(lm, p.reference)
}

// Align warps the face so its landmarks land on the reference layout.
func (p *Precise) Align(img image.Image, lm detection.Landmarks) (*image.RGBA, error) {
	t, err := p.Transform(lm)
	if err != nil {
		return nil, err
	}
	return Warp(img, t, p.size, p.size), nil
}
