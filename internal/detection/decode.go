package detection

import (
	"errors"
	"fmt"
)

// ErrTensorShape is returned when detector outputs disagree with the anchor layout.
var ErrTensorShape = errors.New("detector output shape mismatch")

const (
	boxValues      = 4
	landmarkValues = 10
)

// StrideOutput holds the flattened detector tensors for one stride.
// Values are indexed per anchor: Scores[i], Boxes[4i:4i+4], Landmarks[10i:10i+10].
// Box and landmark values are offsets in stride units.
type StrideOutput struct {
	Stride    int
	Scores    []float32
	Boxes     []float32
	Landmarks []float32
}

// Validate checks the tensor lengths against the number of anchors.
func (o StrideOutput) Validate(anchorCount int) error {
	if len(o.Scores) != anchorCount {
		return fmt.Errorf("%w: stride %d has %d scores for %d anchors", ErrTensorShape, o.Stride, len(o.Scores), anchorCount)
	}
	if len(o.Boxes) != anchorCount*boxValues {
		return fmt.Errorf("%w: stride %d has %d box values, want %d", ErrTensorShape, o.Stride, len(o.Boxes), anchorCount*boxValues)
	}
	if len(o.Landmarks) != anchorCount*landmarkValues {
		return fmt.Errorf("%w: stride %d has %d landmark values, want %d",
			ErrTensorShape, o.Stride, len(o.Landmarks), anchorCount*landmarkValues)
	}
	return nil
}

// DecodeStride turns one stride's raw outputs into candidate detections in
// original-image coordinates. Candidates with score <= threshold are skipped.
//
// The tensors must already match anchors (see Validate); DecodeStride does
// not check lengths.
func DecodeStride(out StrideOutput, anchors []Point, ratio, threshold float32) []Detection {
	stride := float32(out.Stride)
	var dets []Detection
	for i, score := range out.Scores {
		if score <= threshold {
			continue
		}
		anchor := anchors[i]

		b := out.Boxes[i*boxValues : (i+1)*boxValues]
		det := Detection{
			Score: score,
			Box: Box{
				Left:   (anchor.X - b[0]*stride) * ratio,
				Top:    (anchor.Y - b[1]*stride) * ratio,
				Right:  (anchor.X + b[2]*stride) * ratio,
				Bottom: (anchor.Y + b[3]*stride) * ratio,
			},
		}

		k := out.Landmarks[i*landmarkValues : (i+1)*landmarkValues]
		for j := range det.Landmarks {
			det.Landmarks[j] = Point{
				X: (anchor.X + k[2*j]*stride) * ratio,
				Y: (anchor.Y + k[2*j+1]*stride) * ratio,
			}
		}
		dets = append(dets, det)
	}
	return dets
}

// Decode validates and decodes every stride for a detector input of
// inputHeight x inputWidth pixels, concatenating candidates in stride order.
func Decode(outputs []StrideOutput, cache *AnchorCache, inputHeight, inputWidth int, ratio, threshold float32) ([]Detection, error) {
	var all []Detection
	for _, out := range outputs {
		if out.Stride <= 0 {
			return nil, fmt.Errorf("%w: invalid stride %d", ErrTensorShape, out.Stride)
		}
		anchors := cache.Get(inputHeight/out.Stride, inputWidth/out.Stride, out.Stride)
		if err := out.Validate(len(anchors)); err != nil {
			return nil, err
		}
		all = append(all, DecodeStride(out, anchors, ratio, threshold)...)
	}
	return all, nil
}
