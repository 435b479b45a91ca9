// Package detection decodes multi-stride face detector outputs into scored
// boxes with five facial landmarks and removes overlapping duplicates.
package detection

import "github.com/kozaktomas/face-matcher/internal/constants"

// Point is a 2-D coordinate in image pixels.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Box is an axis-aligned rectangle in original-image pixels.
type Box struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
}

// Width returns the horizontal extent of the box (may be negative for malformed boxes).
func (b Box) Width() float32 {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box (may be negative for malformed boxes).
func (b Box) Height() float32 {
	return b.Bottom - b.Top
}

// Area returns Width*Height.
func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

// Landmarks holds the five facial keypoints in fixed order:
// left eye, right eye, nose tip, left mouth corner, right mouth corner.
type Landmarks [constants.LandmarkCount]Point

// Landmark indexes.
const (
	LeftEye = iota
	RightEye
	Nose
	LeftMouth
	RightMouth
)

// Flatten returns the landmarks as [x0, y0, x1, y1, ...].
func (l Landmarks) Flatten() []float32 {
	out := make([]float32, 0, 2*len(l))
	for _, p := range l {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Detection is one face found by the detector.
type Detection struct {
	Score     float32   `json:"score"`
	Box       Box       `json:"box"`
	Landmarks Landmarks `json:"landmarks"`
}
