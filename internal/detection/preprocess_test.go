package detection

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLetterbox_Dimensions(t *testing.T) {
	tests := []struct {
		name      string
		srcW      int
		srcH      int
		wantW     int
		wantH     int
		wantRatio float32
	}{
		{"landscape", 100, 50, 64, 32, 50.0 / 32.0},
		{"portrait", 50, 100, 32, 64, 100.0 / 64.0},
		{"square", 128, 128, 64, 64, 2},
		{"small image is upscaled", 16, 16, 64, 64, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb := Letterbox(solidImage(tt.srcW, tt.srcH, color.RGBA{A: 255}), 64, 64, 127.5, 128)
			if lb.ResizedWidth != tt.wantW || lb.ResizedHeight != tt.wantH {
				t.Errorf("resized to %dx%d, want %dx%d", lb.ResizedWidth, lb.ResizedHeight, tt.wantW, tt.wantH)
			}
			if math.Abs(float64(lb.Ratio-tt.wantRatio)) > 1e-6 {
				t.Errorf("ratio = %v, want %v", lb.Ratio, tt.wantRatio)
			}
			if len(lb.Data) != 3*64*64 {
				t.Errorf("tensor has %d values, want %d", len(lb.Data), 3*64*64)
			}
		})
	}
}

func TestLetterbox_NormalizationAndPadding(t *testing.T) {
	lb := Letterbox(solidImage(100, 50, color.RGBA{R: 255, G: 0, B: 0, A: 255}), 64, 64, 127.5, 128)
	plane := 64 * 64

	tests := []struct {
		name    string
		channel int
		x, y    int
		want    float32
	}{
		{"red inside", 0, 10, 10, (255 - 127.5) / 128},
		{"green inside", 1, 10, 10, (0 - 127.5) / 128},
		{"blue inside", 2, 10, 10, (0 - 127.5) / 128},
		{"red padding", 0, 10, 40, (0 - 127.5) / 128},
		{"blue padding", 2, 63, 63, (0 - 127.5) / 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lb.Data[tt.channel*plane+tt.y*64+tt.x]
			if math.Abs(float64(got-tt.want)) > 0.01 {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}
