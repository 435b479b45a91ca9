// Package align maps a detected face onto the canonical pose expected by the
// recognizer.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/face-matcher/internal/detection"
)

// ErrDegenerateLandmarks is returned when landmarks cannot define a transform.
var ErrDegenerateLandmarks = errors.New("degenerate landmarks")

const (
	minEyeDistance = 1e-3
	pivotEpsilon   = 1e-9
)

// SimilarityTransform maps (x, y) to (A*x + B*y + TX, -B*x + A*y + TY):
// uniform scale, rotation and translation.
type SimilarityTransform struct {
	A  float64
	B  float64
	TX float64
	TY float64
}

// Identity is the transform that leaves points unchanged.
var Identity = SimilarityTransform{A: 1}

// Apply maps a point.
func (t SimilarityTransform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.B*y + t.TX, -t.B*x + t.A*y + t.TY
}

// Scale returns the uniform scale factor.
func (t SimilarityTransform) Scale() float64 {
	return math.Hypot(t.A, t.B)
}

// Rotation returns the rotation angle in radians (counter-clockwise in a
// y-up frame).
func (t SimilarityTransform) Rotation() float64 {
	return math.Atan2(-t.B, t.A)
}

// Inverse returns the transform mapping destination points back to source points.
func (t SimilarityTransform) Inverse() (SimilarityTransform, error) {
	det := t.A*t.A + t.B*t.B
	if det < pivotEpsilon {
		return SimilarityTransform{}, fmt.Errorf("%w: transform is not invertible", ErrDegenerateLandmarks)
	}
	a := t.A / det
	b := -t.B / det
	return SimilarityTransform{
		A:  a,
		B:  b,
		TX: -(a*t.TX + b*t.TY),
		TY: -(-b*t.TX + a*t.TY),
	}, nil
}

// EstimateSimilarity finds the least-squares similarity transform taking src
// landmarks onto dst. It builds the 10x4 design matrix with rows
// [x, y, 1, 0] and [y, -x, 0, 1] per landmark and solves the normal equations.
func EstimateSimilarity(src, dst detection.Landmarks) (SimilarityTransform, error) {
	if err := checkLandmarks(src); err != nil {
		return SimilarityTransform{}, err
	}

	var ata [4][4]float64
	var atb [4]float64
	for i := range src {
		x, y := float64(src[i].X), float64(src[i].Y)
		rows := [2][4]float64{
			{x, y, 1, 0},
			{y, -x, 0, 1},
		}
		targets := [2]float64{float64(dst[i].X), float64(dst[i].Y)}
		for r, row := range rows {
			for j := range 4 {
				for k := range 4 {
					ata[j][k] += row[j] * row[k]
				}
				atb[j] += row[j] * targets[r]
			}
		}
	}

	sol, err := solve4(ata, atb)
	if err != nil {
		return SimilarityTransform{}, err
	}
	return SimilarityTransform{A: sol[0], B: sol[1], TX: sol[2], TY: sol[3]}, nil
}

// checkLandmarks rejects non-finite coordinates and coincident eyes.
func checkLandmarks(lm detection.Landmarks) error {
	for i, p := range lm {
		x, y := float64(p.X), float64(p.Y)
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return fmt.Errorf("%w: landmark %d is not finite", ErrDegenerateLandmarks, i)
		}
	}
	l, r := lm[detection.LeftEye], lm[detection.RightEye]
	if math.Hypot(float64(r.X-l.X), float64(r.Y-l.Y)) < minEyeDistance {
		return fmt.Errorf("%w: eye points coincide", ErrDegenerateLandmarks)
	}
	return nil
}

// solve4 solves m*x = v by Gaussian elimination with partial pivoting.
func solve4(m [4][4]float64, v [4]float64) ([4]float64, error) {
	scale := 1.0
	for i := range 4 {
		for j := range 4 {
			scale = max(scale, math.Abs(m[i][j]))
		}
	}

	for col := range 4 {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < pivotEpsilon*scale {
			return [4]float64{}, fmt.Errorf("%w: normal matrix is singular", ErrDegenerateLandmarks)
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]

		for r := col + 1; r < 4; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < 4; c++ {
				m[r][c] -= f * m[col][c]
			}
			v[r] -= f * v[col]
		}
	}

	var x [4]float64
	for r := 3; r >= 0; r-- {
		sum := v[r]
		for c := r + 1; c < 4; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x, nil
}
