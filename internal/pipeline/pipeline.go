// Package pipeline wires detection, alignment and recognition into the
// operations the service exposes. The pipeline borrows the inference sessions
// it is given and never closes them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/face-matcher/internal/align"
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/detection"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/inference"
	"github.com/kozaktomas/face-matcher/internal/logging"
)

// Options configures a Pipeline.
type Options struct {
	Detection detection.Options

	Alignment string             // "precise" or "heuristic"
	Reference detection.Landmarks // landmark layout for a 112x112 face
	FaceSize  int                // aligned face side in pixels

	RecognizerMean float32
	RecognizerStd  float32
	Model          string // recognizer name recorded with stored faces

	Threshold   float64 // squared distance threshold
	Concurrency int     // parallel images in LoadDirectory
}

// DefaultOptions returns the settings for the bundled model profiles.
func DefaultOptions() Options {
	return Options{
		Detection:      detection.DefaultOptions(),
		Alignment:      constants.AlignmentPrecise,
		Reference:      align.ArcFaceReference,
		FaceSize:       constants.AlignedFaceSize,
		RecognizerMean: 127.5,
		RecognizerStd:  127.5,
		Model:          "w600k_r50",
		Threshold:      constants.DefaultRecognitionThreshold,
		Concurrency:    constants.DefaultConcurrency,
	}
}

// OptionsFromConfig builds options from the selected model profiles.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	det, err := cfg.DetectorProfile()
	if err != nil {
		return Options{}, err
	}
	rec, err := cfg.RecognizerProfile()
	if err != nil {
		return Options{}, err
	}

	opts := DefaultOptions()
	opts.Detection = detection.Options{
		InputWidth:     det.InputWidth,
		InputHeight:    det.InputHeight,
		Mean:           det.Mean,
		Std:            det.Std,
		Strides:        det.Strides,
		AnchorsPerCell: det.AnchorsPerCell,
		Threshold:      float32(cfg.Detector.Threshold),
		NMSThreshold:   float32(cfg.Detector.NMSThreshold),
	}
	opts.Alignment = cfg.Recognizer.Alignment
	opts.Reference = align.ReferenceFromPairs(rec.ReferenceLandmarks)
	opts.FaceSize = rec.InputSize
	opts.RecognizerMean = rec.Mean
	opts.RecognizerStd = rec.Std
	opts.Model = cfg.Recognizer.Profile
	opts.Threshold = cfg.Matching.Threshold
	return opts, nil
}

// Face is one detected face with its embedding.
type Face struct {
	Detection    detection.Detection `json:"detection"`
	Embedding    embedding.Embedding `json:"embedding"`     // unit length
	RawEmbedding []float32           `json:"raw_embedding"` // recognizer output
}

// Pipeline runs the face operations against one inference engine.
type Pipeline struct {
	detector   *detection.Detector
	recognizer inference.Session
	aligner    align.Aligner
	registry   *facematch.Registry
	store      database.FaceWriter
	opts       Options
}

// New creates a pipeline over engine. The engine must provide both sessions.
func New(engine *inference.Engine, opts Options) (*Pipeline, error) {
	if engine == nil || engine.Detector == nil || engine.Recognizer == nil {
		return nil, errors.New("inference engine needs detector and recognizer sessions")
	}
	if opts.FaceSize <= 0 {
		opts.FaceSize = constants.AlignedFaceSize
	}
	if opts.RecognizerStd == 0 {
		opts.RecognizerMean, opts.RecognizerStd = 127.5, 127.5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.DefaultConcurrency
	}

	aligner, err := align.New(opts.Alignment, opts.Reference, opts.FaceSize)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		detector:   detection.NewDetector(engine.Detector, opts.Detection),
		recognizer: engine.Recognizer,
		aligner:    aligner,
		registry:   facematch.NewRegistry(facematch.NewEngine(opts.Threshold)),
		opts:       opts,
	}, nil
}

// SetStore attaches a persistent store. Registrations, removals and clears
// are written through to it.
func (p *Pipeline) SetStore(store database.FaceWriter) {
	p.store = store
}

// Registry returns the in-memory registry.
func (p *Pipeline) Registry() *facematch.Registry {
	return p.registry
}

// Options returns the pipeline settings.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Threshold returns the recognition threshold.
func (p *Pipeline) Threshold() float64 {
	return p.registry.Engine().Threshold
}

// Detect finds every face in img, best first.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	return p.detector.Detect(ctx, img)
}

// AlignFace returns the aligned crop the recognizer sees for det.
func (p *Pipeline) AlignFace(img image.Image, det detection.Detection) (*image.RGBA, error) {
	return p.aligner.Align(img, det.Landmarks)
}

// Extract aligns the face found by det and computes its embedding.
func (p *Pipeline) Extract(ctx context.Context, img image.Image, det detection.Detection) (Face, error) {
	aligned, err := p.AlignFace(img, det)
	if err != nil {
		return Face{}, fmt.Errorf("aligning face: %w", err)
	}

	size := int64(p.opts.FaceSize)
	input, err := inference.NewTensor(faceTensor(aligned, p.opts.RecognizerMean, p.opts.RecognizerStd), 1, 3, size, size)
	if err != nil {
		return Face{}, fmt.Errorf("building recognizer input: %w", err)
	}

	outputs, err := p.recognizer.Run(ctx, input)
	if err != nil {
		return Face{}, fmt.Errorf("running recognizer: %w", err)
	}
	if len(outputs) == 0 || len(outputs[0].Data) == 0 {
		return Face{}, inference.ErrNoOutput
	}

	raw := append([]float32(nil), outputs[0].Data...)
	unit, err := embedding.Normalize(raw)
	if err != nil {
		return Face{}, fmt.Errorf("normalizing embedding: %w", err)
	}
	return Face{Detection: det, Embedding: unit, RawEmbedding: raw}, nil
}

// DetectSingle requires exactly one face in img and returns it with its
// embedding.
func (p *Pipeline) DetectSingle(ctx context.Context, img image.Image) (Face, error) {
	dets, err := p.Detect(ctx, img)
	if err != nil {
		return Face{}, err
	}
	if err := requireSingle(len(dets)); err != nil {
		return Face{}, err
	}
	return p.Extract(ctx, img, dets[0])
}

func requireSingle(n int) error {
	switch {
	case n == 0:
		return facematch.ErrNoFaceDetected
	case n > 1:
		return fmt.Errorf("%w: found %d faces", facematch.ErrMultipleFacesDetected, n)
	}
	return nil
}

// faceTensor converts an aligned face into planar RGB, (p-mean)/std.
func faceTensor(img *image.RGBA, mean, std float32) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	data := make([]float32, 3*plane)
	for y := range h {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := range w {
			px := row[4*x:]
			i := y*w + x
			data[i] = (float32(px[0]) - mean) / std
			data[plane+i] = (float32(px[1]) - mean) / std
			data[2*plane+i] = (float32(px[2]) - mean) / std
		}
	}
	return data
}

func logFace(msg string, face Face, fields logging.Fields) {
	if fields == nil {
		fields = logging.Fields{}
	}
	fields["score"] = face.Detection.Score
	fields["box"] = face.Detection.Box
	logging.Debug(fields, msg)
}
