package handlers

import (
	"context"
	"image"

	"github.com/kozaktomas/face-matcher/internal/detection"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/pipeline"
)

// FaceService is the subset of *pipeline.Pipeline the handlers use.
type FaceService interface {
	Detect(ctx context.Context, img image.Image) ([]detection.Detection, error)
	Extract(ctx context.Context, img image.Image, det detection.Detection) (pipeline.Face, error)
	DetectSingle(ctx context.Context, img image.Image) (pipeline.Face, error)
	AlignFace(img image.Image, det detection.Detection) (*image.RGBA, error)
	Compare(ctx context.Context, img1, img2 image.Image) (pipeline.CompareResult, error)
	Register(ctx context.Context, identity string, img image.Image, source string) (pipeline.RegisterResult, error)
	Recognize(ctx context.Context, img image.Image) ([]pipeline.Recognition, error)
	RecognizeBest(ctx context.Context, img image.Image) ([]pipeline.Recognition, error)
	Remove(ctx context.Context, identity string) (bool, error)
	Clear(ctx context.Context) error
	Registry() *facematch.Registry
}

var _ FaceService = (*pipeline.Pipeline)(nil)
