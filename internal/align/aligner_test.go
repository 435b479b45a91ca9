package align

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/face-matcher/internal/detection"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(2 * x), G: uint8(2 * y), B: 100, A: 255})
		}
	}
	return img
}

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func colorClose(a, b color.RGBA, tol int) bool {
	diff := func(x, y uint8) int {
		d := int(x) - int(y)
		if d < 0 {
			return -d
		}
		return d
	}
	return diff(a.R, b.R) <= tol && diff(a.G, b.G) <= tol && diff(a.B, b.B) <= tol && diff(a.A, b.A) <= tol
}

func TestPrecise_IdentityAlignmentKeepsPixels(t *testing.T) {
	src := gradientImage(112, 112)
	out, err := NewPrecise(ArcFaceReference, 112).Align(src, ArcFaceReference)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	if out.Bounds().Dx() != 112 || out.Bounds().Dy() != 112 {
		t.Fatalf("output is %v, want 112x112", out.Bounds())
	}
	for _, p := range []image.Point{{10, 10}, {56, 56}, {100, 30}, {30, 100}} {
		got := out.RGBAAt(p.X, p.Y)
		want := src.RGBAAt(p.X, p.Y)
		if !colorClose(got, want, 2) {
			t.Errorf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestPrecise_DownscalesLargerFace(t *testing.T) {
	// a face twice the reference size: output pixel d samples source pixel 2d
	src := image.NewRGBA(image.Rect(0, 0, 224, 224))
	for y := range 224 {
		for x := range 224 {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	lm := transformLandmarks(SimilarityTransform{A: 2}, ArcFaceReference)

	out, err := NewPrecise(ArcFaceReference, 112).Align(src, lm)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	for _, p := range []image.Point{{20, 30}, {56, 56}, {90, 10}} {
		want := src.RGBAAt(2*p.X, 2*p.Y)
		if got := out.RGBAAt(p.X, p.Y); !colorClose(got, want, 2) {
			t.Errorf("pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestWarp_FillsUncoveredPixelsBlack(t *testing.T) {
	src := uniformImage(20, 20, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	out := Warp(src, SimilarityTransform{A: 1, TX: 50}, 40, 40)

	if got := out.RGBAAt(5, 5); got != (color.RGBA{A: 255}) {
		t.Errorf("uncovered pixel = %v, want opaque black", got)
	}
}

func TestWarp_Translation(t *testing.T) {
	src := uniformImage(10, 10, color.RGBA{R: 255, A: 255})
	out := Warp(src, SimilarityTransform{A: 1, TX: 20, TY: 5}, 40, 40)

	if got := out.RGBAAt(25, 10); !colorClose(got, color.RGBA{R: 255, A: 255}, 1) {
		t.Errorf("translated pixel = %v, want red", got)
	}
	if got := out.RGBAAt(5, 10); got != (color.RGBA{A: 255}) {
		t.Errorf("pixel left of the translated block = %v, want black", got)
	}
}

func TestPrecise_DegenerateLandmarks(t *testing.T) {
	lm := detection.Landmarks{{X: 50, Y: 50}, {X: 50, Y: 50}, {X: 60, Y: 60}, {X: 45, Y: 80}, {X: 65, Y: 80}}
	_, err := NewPrecise(ArcFaceReference, 112).Align(gradientImage(112, 112), lm)
	if !errors.Is(err, ErrDegenerateLandmarks) {
		t.Errorf("expected ErrDegenerateLandmarks, got %v", err)
	}
}

func levelFace(offsetX, offsetY float32) detection.Landmarks {
	return detection.Landmarks{
		{X: offsetX - 20, Y: offsetY},
		{X: offsetX + 20, Y: offsetY},
		{X: offsetX, Y: offsetY + 18},
		{X: offsetX - 15, Y: offsetY + 35},
		{X: offsetX + 15, Y: offsetY + 35},
	}
}

func TestHeuristic_OutputSizeAndContent(t *testing.T) {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	out, err := NewHeuristic(112, 112).Align(uniformImage(300, 300, gray), levelFace(150, 120))
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	if out.Bounds().Dx() != 112 || out.Bounds().Dy() != 112 {
		t.Fatalf("output is %v, want 112x112", out.Bounds())
	}
	if got := out.RGBAAt(56, 56); !colorClose(got, gray, 2) {
		t.Errorf("center pixel = %v, want %v", got, gray)
	}
}

func TestHeuristic_OutsideImageIsWhite(t *testing.T) {
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	// eye center at (5, 5): the top-left of the face box lies outside the image
	out, err := NewHeuristic(112, 112).Align(uniformImage(200, 200, gray), levelFace(5, 5))
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if got := out.RGBAAt(0, 0); !colorClose(got, white, 2) {
		t.Errorf("top-left pixel = %v, want white", got)
	}
	if got := out.RGBAAt(111, 111); !colorClose(got, gray, 2) {
		t.Errorf("bottom-right pixel = %v, want gray", got)
	}
}

func TestHeuristic_Degenerate(t *testing.T) {
	lm := detection.Landmarks{{X: 10, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 12}, {X: 8, Y: 14}, {X: 12, Y: 14}}
	_, err := NewHeuristic(112, 112).Align(uniformImage(50, 50, color.RGBA{A: 255}), lm)
	if !errors.Is(err, ErrDegenerateLandmarks) {
		t.Errorf("expected ErrDegenerateLandmarks, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		method  string
		wantErr bool
	}{
		{"precise", false},
		{"heuristic", false},
		{"", false},
		{"affine3d", true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			a, err := New(tt.method, ArcFaceReference, 112)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.method, err, tt.wantErr)
			}
			if !tt.wantErr && a == nil {
				t.Error("expected aligner")
			}
		})
	}
}
