package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/inference"
)

// Options configures a Detector.
type Options struct {
	InputWidth     int
	InputHeight    int
	Mean           float32
	Std            float32
	Strides        []int
	AnchorsPerCell int
	Threshold      float32
	NMSThreshold   float32
}

// DefaultOptions returns the settings for a 640x640 three-stride detector.
func DefaultOptions() Options {
	return Options{
		InputWidth:     constants.DetectorInputWidth,
		InputHeight:    constants.DetectorInputHeight,
		Mean:           127.5,
		Std:            128,
		Strides:        constants.DetectorStrides,
		AnchorsPerCell: constants.AnchorsPerCell,
		Threshold:      constants.DefaultDetectionThreshold,
		NMSThreshold:   constants.DefaultNMSThreshold,
	}
}

// Detector runs the detection model and post-processes its outputs.
type Detector struct {
	session inference.Session
	anchors *AnchorCache
	opts    Options
}

// NewDetector creates a detector over an already opened session.
func NewDetector(session inference.Session, opts Options) *Detector {
	return &Detector{
		session: session,
		anchors: NewAnchorCache(opts.AnchorsPerCell),
		opts:    opts,
	}
}

// Options returns the detector settings.
func (d *Detector) Options() Options {
	return d.opts
}

// Detect finds faces in img. The result is sorted by descending score with
// overlapping duplicates removed; an image without faces yields an empty slice.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	lb := Letterbox(img, d.opts.InputWidth, d.opts.InputHeight, d.opts.Mean, d.opts.Std)

	input, err := inference.NewTensor(lb.Data, 1, 3, int64(lb.Height), int64(lb.Width))
	if err != nil {
		return nil, fmt.Errorf("building detector input: %w", err)
	}

	outputs, err := d.session.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("running detector: %w", err)
	}

	strides, err := d.splitOutputs(outputs)
	if err != nil {
		return nil, err
	}

	candidates, err := Decode(strides, d.anchors, d.opts.InputHeight, d.opts.InputWidth, lb.Ratio, d.opts.Threshold)
	if err != nil {
		return nil, err
	}
	return Suppress(candidates, d.opts.NMSThreshold), nil
}

// splitOutputs maps the flat output list (scores per stride, then boxes per
// stride, then landmarks per stride) onto StrideOutput values.
func (d *Detector) splitOutputs(outputs []inference.Tensor) ([]StrideOutput, error) {
	n := len(d.opts.Strides)
	if len(outputs) != 3*n {
		return nil, fmt.Errorf("%w: expected %d outputs, got %d", ErrTensorShape, 3*n, len(outputs))
	}
	strides := make([]StrideOutput, n)
	for idx, stride := range d.opts.Strides {
		strides[idx] = StrideOutput{
			Stride:    stride,
			Scores:    outputs[idx].Data,
			Boxes:     outputs[idx+n].Data,
			Landmarks: outputs[idx+2*n].Data,
		}
	}
	return strides, nil
}
