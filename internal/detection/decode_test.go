package detection

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func newStrideOutput(stride, anchors int) StrideOutput {
	return StrideOutput{
		Stride:    stride,
		Scores:    make([]float32, anchors),
		Boxes:     make([]float32, anchors*4),
		Landmarks: make([]float32, anchors*10),
	}
}

func TestDecodeStride_ZeroOffsetsCollapseToAnchor(t *testing.T) {
	anchors := []Point{{0, 0}, {0, 0}, {8, 0}, {8, 0}, {0, 8}, {0, 8}, {8, 8}, {8, 8}}
	out := newStrideOutput(8, len(anchors))
	out.Scores[6] = 0.9

	dets := DecodeStride(out, anchors, 2, 0.5)
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}

	d := dets[0]
	want := Box{Left: 16, Top: 16, Right: 16, Bottom: 16}
	if d.Box != want {
		t.Errorf("box = %+v, want %+v", d.Box, want)
	}
	for i, p := range d.Landmarks {
		if p != (Point{16, 16}) {
			t.Errorf("landmark %d = %v, want {16 16}", i, p)
		}
	}
	if d.Score != 0.9 {
		t.Errorf("score = %v, want 0.9", d.Score)
	}
}

func TestDecodeStride_OffsetsScaledByStrideAndRatio(t *testing.T) {
	anchors := []Point{{16, 8}}
	out := newStrideOutput(8, 1)
	out.Scores[0] = 0.8
	copy(out.Boxes, []float32{1, 1, 2, 2})
	copy(out.Landmarks, []float32{-1, 0, 1, 0, 0, 0.5, -0.5, 1, 0.5, 1})

	dets := DecodeStride(out, anchors, 2, 0.5)
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}

	box := dets[0].Box
	// left/top distances point away from the anchor
	if !approx(box.Left, 16) || !approx(box.Top, 0) || !approx(box.Right, 64) || !approx(box.Bottom, 48) {
		t.Errorf("box = %+v, want {16 0 64 48}", box)
	}

	wantLandmarks := Landmarks{{16, 16}, {48, 16}, {32, 24}, {24, 32}, {40, 32}}
	for i := range wantLandmarks {
		got := dets[0].Landmarks[i]
		if !approx(got.X, wantLandmarks[i].X) || !approx(got.Y, wantLandmarks[i].Y) {
			t.Errorf("landmark %d = %v, want %v", i, got, wantLandmarks[i])
		}
	}
}

func TestDecodeStride_ThresholdIsExclusive(t *testing.T) {
	anchors := []Point{{0, 0}, {0, 0}, {0, 0}}
	out := newStrideOutput(8, 3)
	out.Scores[0] = 0.5
	out.Scores[1] = 0.5001
	out.Scores[2] = 0.1

	dets := DecodeStride(out, anchors, 1, 0.5)
	if len(dets) != 1 {
		t.Fatalf("expected only the score above threshold, got %d detections", len(dets))
	}
	if dets[0].Score != 0.5001 {
		t.Errorf("unexpected score %v", dets[0].Score)
	}
}

func TestDecodeStride_NoCandidates(t *testing.T) {
	anchors := []Point{{0, 0}}
	out := newStrideOutput(8, 1)
	if dets := DecodeStride(out, anchors, 1, 0.5); len(dets) != 0 {
		t.Errorf("expected no detections, got %d", len(dets))
	}
}

func TestDecode_AllStrides(t *testing.T) {
	cache := NewAnchorCache(2)
	var outputs []StrideOutput
	for _, stride := range []int{8, 16, 32} {
		cells := (64 / stride) * (64 / stride)
		outputs = append(outputs, newStrideOutput(stride, cells*2))
	}
	outputs[0].Scores[0] = 0.7
	outputs[2].Scores[3] = 0.95

	dets, err := Decode(outputs, cache, 64, 64, 1, 0.5)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(dets))
	}
	// stride order is preserved before suppression
	if dets[0].Score != 0.7 || dets[1].Score != 0.95 {
		t.Errorf("unexpected order: %v, %v", dets[0].Score, dets[1].Score)
	}
	// stride 32, anchor index 3 -> cell 1 -> (32, 0)
	if dets[1].Box.Left != 32 || dets[1].Box.Top != 0 {
		t.Errorf("stride-32 box = %+v, want anchor (32, 0)", dets[1].Box)
	}
}

func TestDecode_ShapeMismatch(t *testing.T) {
	cache := NewAnchorCache(2)
	tests := []struct {
		name string
		out  StrideOutput
	}{
		{"short scores", StrideOutput{Stride: 8, Scores: make([]float32, 3), Boxes: make([]float32, 128), Landmarks: make([]float32, 320)}},
		{"short boxes", StrideOutput{Stride: 8, Scores: make([]float32, 32), Boxes: make([]float32, 127), Landmarks: make([]float32, 320)}},
		{"short landmarks", StrideOutput{Stride: 8, Scores: make([]float32, 32), Boxes: make([]float32, 128), Landmarks: make([]float32, 10)}},
		{"zero stride", StrideOutput{Stride: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]StrideOutput{tt.out}, cache, 32, 32, 1, 0.5)
			if !errors.Is(err, ErrTensorShape) {
				t.Errorf("expected ErrTensorShape, got %v", err)
			}
		})
	}
}
