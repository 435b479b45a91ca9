package align

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/kozaktomas/face-matcher/internal/detection"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// eye-to-mouth distance as a fraction of the face height
	eyeMouthFraction = 0.35
	// share of the face height below the eye line
	belowEyesFraction = 0.65
)

// Heuristic levels the eye line and crops a box sized from the eye-to-mouth
// distance. It needs only the eye and mouth landmarks.
type Heuristic struct {
	width  int
	height int
}

// NewHeuristic creates a heuristic aligner producing width x height faces.
func NewHeuristic(width, height int) *Heuristic {
	return &Heuristic{width: max(width, 1), height: max(height, 1)}
}

// Align crops a square around the eye center on a white canvas, rotates it so
// the eyes are horizontal, cuts the face box and resizes it.
func (h *Heuristic) Align(img image.Image, lm detection.Landmarks) (*image.RGBA, error) {
	if err := checkLandmarks(lm); err != nil {
		return nil, err
	}

	le, re := lm[detection.LeftEye], lm[detection.RightEye]
	lmouth, rmouth := lm[detection.LeftMouth], lm[detection.RightMouth]

	angle := math.Atan2(float64(re.Y-le.Y), float64(re.X-le.X))
	eyeX, eyeY := float64(le.X+re.X)/2, float64(le.Y+re.Y)/2
	lipX, lipY := float64(lmouth.X+rmouth.X)/2, float64(lmouth.Y+rmouth.Y)/2

	dis := math.Hypot(eyeX-lipX, eyeY-lipY) / eyeMouthFraction
	bottom := int(math.Round(dis * belowEyesFraction))
	top := int(math.Round(dis - float64(bottom)))
	left := int(math.Round(float64(h.width) * dis / float64(h.height) / 2))
	if bottom <= 0 || top <= 0 || left <= 0 {
		return nil, fmt.Errorf("%w: face too small to crop", ErrDegenerateLandmarks)
	}

	square := cropSquare(img, int(math.Round(eyeX)), int(math.Round(eyeY)), bottom)

	// Rotate by -angle about the square center and cut the face box in the
	// same pass. The rotation is a similarity with A=cos, B=sin.
	cos, sin := math.Cos(angle), math.Sin(angle)
	center := float64(square.Bounds().Dx()) / 2
	crop := SimilarityTransform{A: cos, B: sin}
	rx, ry := crop.Apply(center, center)
	crop.TX = float64(left) - rx
	crop.TY = float64(top) - ry

	face := warpAffine(square, f64.Aff3{crop.A, crop.B, crop.TX, -crop.B, crop.A, crop.TY},
		2*left, top+bottom, color.White)

	out := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	draw.BiLinear.Scale(out, out.Bounds(), face, face.Bounds(), draw.Src, nil)
	return out, nil
}

// cropSquare copies the (4*half+1)-pixel square centered on (cx, cy) onto a
// white canvas; parts outside img stay white.
func cropSquare(img image.Image, cx, cy, half int) *image.RGBA {
	b := img.Bounds()
	x1 := max(cx-2*half, b.Min.X)
	y1 := max(cy-2*half, b.Min.Y)
	x2 := min(cx+2*half, b.Max.X-1)
	y2 := min(cy+2*half, b.Max.Y-1)

	size := 4*half + 1
	square := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(square, square.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if x2 < x1 || y2 < y1 {
		return square
	}

	origin := image.Pt(2*half-(cx-x1), 2*half-(cy-y1))
	r := image.Rect(origin.X, origin.Y, origin.X+x2-x1+1, origin.Y+y2-y1+1)
	draw.Draw(square, r, img, image.Pt(x1, y1), draw.Src)
	return square
}
