package detection

import (
	"image"

	"golang.org/x/image/draw"
)

// Letterboxed is a detector input tensor plus the scale needed to map
// detections back to the source image.
type Letterboxed struct {
	Data          []float32 // NCHW, channel order R, G, B
	Width         int
	Height        int
	ResizedWidth  int
	ResizedHeight int
	Ratio         float32 // source height / resized height
}

// Letterbox scales img to fit width x height keeping its aspect ratio, places
// it at the top-left corner and pads the rest with black. Pixels are
// normalized as (p - mean) / std.
func Letterbox(img image.Image, width, height int, mean, std float32) Letterboxed {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	targetRate := float32(width) / float32(height)
	srcRate := float32(srcW) / float32(srcH)

	var newW, newH int
	if targetRate > srcRate {
		newW = int(float32(height) * srcRate)
		newH = height
	} else {
		newW = width
		newH = int(float32(width) / srcRate)
	}
	newW = max(1, min(newW, width))
	newH = max(1, min(newH, height))

	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	plane := width * height
	data := make([]float32, 3*plane)
	pad := (0 - mean) / std
	for y := range height {
		for x := range width {
			idx := y*width + x
			if x >= newW || y >= newH {
				data[idx] = pad
				data[plane+idx] = pad
				data[2*plane+idx] = pad
				continue
			}
			off := resized.PixOffset(x, y)
			data[idx] = (float32(resized.Pix[off]) - mean) / std
			data[plane+idx] = (float32(resized.Pix[off+1]) - mean) / std
			data[2*plane+idx] = (float32(resized.Pix[off+2]) - mean) / std
		}
	}

	return Letterboxed{
		Data:          data,
		Width:         width,
		Height:        height,
		ResizedWidth:  newW,
		ResizedHeight: newH,
		Ratio:         float32(srcH) / float32(newH),
	}
}
