package align

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Warp resamples img through t into a width x height image. t works in pixel
// index coordinates; pixels with no source are black.
func Warp(img image.Image, t SimilarityTransform, width, height int) *image.RGBA {
	// x/image/draw samples at pixel centers (i + 0.5), so shift the
	// translation to keep index-space landmarks on target.
	tx := t.TX + 0.5 - 0.5*(t.A+t.B)
	ty := t.TY + 0.5 - 0.5*(t.A-t.B)
	return warpAffine(img, f64.Aff3{t.A, t.B, tx, -t.B, t.A, ty}, width, height, color.Black)
}

// warpAffine maps src through the source-to-destination matrix s2d onto a
// width x height canvas prefilled with bg.
func warpAffine(src image.Image, s2d f64.Aff3, width, height int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}
