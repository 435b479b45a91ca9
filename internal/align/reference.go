package align

import (
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/detection"
)

// ArcFaceReference is the canonical landmark layout for a 112x112 aligned face.
var ArcFaceReference = detection.Landmarks{
	{X: 38.2946, Y: 51.6963},
	{X: 73.5318, Y: 51.5014},
	{X: 56.0252, Y: 71.7366},
	{X: 41.5493, Y: 92.3655},
	{X: 70.7299, Y: 92.2041},
}

// ReferenceFromPairs converts configured [x, y] pairs into landmarks.
// Missing entries fall back to the ArcFace layout.
func ReferenceFromPairs(pairs [][2]float64) detection.Landmarks {
	ref := ArcFaceReference
	for i := range min(len(pairs), len(ref)) {
		ref[i] = detection.Point{X: float32(pairs[i][0]), Y: float32(pairs[i][1])}
	}
	return ref
}

// ScaleReference rescales a 112x112 reference to a size x size output.
func ScaleReference(ref detection.Landmarks, size int) detection.Landmarks {
	if size == constants.AlignedFaceSize || size <= 0 {
		return ref
	}
	f := float32(size) / constants.AlignedFaceSize
	for i := range ref {
		ref[i].X *= f
		ref[i].Y *= f
	}
	return ref
}
