package detection

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/kozaktomas/face-matcher/internal/inference"
)

func smallOptions() Options {
	opts := DefaultOptions()
	opts.InputWidth = 64
	opts.InputHeight = 64
	return opts
}

// fakeOutputs builds detector outputs for a 64x64 input with the given
// scores set on stride-8 anchors.
func fakeOutputs(scores map[int]float32) []inference.Tensor {
	strides := []int{8, 16, 32}
	outs := make([]inference.Tensor, 9)
	for i, s := range strides {
		anchors := (64 / s) * (64 / s) * 2
		outs[i] = inference.Tensor{Shape: []int64{1, int64(anchors), 1}, Data: make([]float32, anchors)}
		outs[i+3] = inference.Tensor{Shape: []int64{1, int64(anchors), 4}, Data: make([]float32, anchors*4)}
		outs[i+6] = inference.Tensor{Shape: []int64{1, int64(anchors), 10}, Data: make([]float32, anchors*10)}
	}
	for idx, score := range scores {
		outs[0].Data[idx] = score
		copy(outs[3].Data[idx*4:], []float32{1, 1, 1, 1})
	}
	return outs
}

func TestDetector_Detect(t *testing.T) {
	var gotShape []int64
	session := inference.SessionFunc(func(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
		gotShape = input.Shape
		// anchors 20 and 21 share cell (2, 1) and overlap completely
		return fakeOutputs(map[int]float32{20: 0.9, 21: 0.6}), nil
	})

	d := NewDetector(session, smallOptions())
	dets, err := d.Detect(context.Background(), solidImage(128, 128, color.RGBA{A: 255}))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	want := []int64{1, 3, 64, 64}
	if len(gotShape) != len(want) {
		t.Fatalf("input shape = %v, want %v", gotShape, want)
	}
	for i := range want {
		if gotShape[i] != want[i] {
			t.Errorf("input shape = %v, want %v", gotShape, want)
		}
	}

	if len(dets) != 1 {
		t.Fatalf("expected 1 detection after suppression, got %d", len(dets))
	}
	// anchor (16, 8), offsets of one stride, source twice the input size
	wantBox := Box{Left: 16, Top: 0, Right: 48, Bottom: 32}
	if dets[0].Box != wantBox {
		t.Errorf("box = %+v, want %+v", dets[0].Box, wantBox)
	}
	if dets[0].Score != 0.9 {
		t.Errorf("score = %v, want 0.9", dets[0].Score)
	}
}

func TestDetector_NoFaces(t *testing.T) {
	session := inference.SessionFunc(func(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
		return fakeOutputs(nil), nil
	})

	dets, err := NewDetector(session, smallOptions()).Detect(context.Background(), solidImage(64, 64, color.RGBA{A: 255}))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("expected no detections, got %d", len(dets))
	}
}

func TestDetector_WrongOutputCount(t *testing.T) {
	session := inference.SessionFunc(func(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
		return fakeOutputs(nil)[:6], nil
	})

	_, err := NewDetector(session, smallOptions()).Detect(context.Background(), solidImage(64, 64, color.RGBA{A: 255}))
	if !errors.Is(err, ErrTensorShape) {
		t.Errorf("expected ErrTensorShape, got %v", err)
	}
}

func TestDetector_SessionError(t *testing.T) {
	boom := errors.New("runtime failure")
	session := inference.SessionFunc(func(ctx context.Context, input inference.Tensor) ([]inference.Tensor, error) {
		return nil, boom
	})

	_, err := NewDetector(session, smallOptions()).Detect(context.Background(), solidImage(64, 64, color.RGBA{A: 255}))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped session error, got %v", err)
	}
}
