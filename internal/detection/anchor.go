package detection

import (
	"sync"

	"github.com/kozaktomas/face-matcher/internal/constants"
)

type gridKey struct {
	height int
	width  int
	stride int
}

// AnchorCache memoizes anchor-center grids per (height, width, stride).
// Grids are immutable once stored and safe to share between goroutines.
type AnchorCache struct {
	perCell int
	grids   sync.Map // gridKey -> []Point
}

// NewAnchorCache creates a cache producing perCell identical anchors per cell.
// A non-positive perCell falls back to the detector default.
func NewAnchorCache(perCell int) *AnchorCache {
	if perCell <= 0 {
		perCell = constants.AnchorsPerCell
	}
	return &AnchorCache{perCell: perCell}
}

// Get returns the anchor grid for a feature map of height x width cells at the
// given stride, generating and storing it on first use. Concurrent first calls
// for the same key all receive the single stored grid.
func (c *AnchorCache) Get(height, width, stride int) []Point {
	key := gridKey{height: height, width: width, stride: stride}
	if grid, ok := c.grids.Load(key); ok {
		return grid.([]Point)
	}
	grid, _ := c.grids.LoadOrStore(key, generateGrid(height, width, stride, c.perCell))
	return grid.([]Point)
}

// Len returns the number of cached grids.
func (c *AnchorCache) Len() int {
	n := 0
	c.grids.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// generateGrid lays anchors out row-major: h outer, w inner, perCell copies of
// (w*stride, h*stride) per cell.
func generateGrid(height, width, stride, perCell int) []Point {
	if height <= 0 || width <= 0 {
		return []Point{}
	}
	grid := make([]Point, 0, height*width*perCell)
	for h := range height {
		for w := range width {
			p := Point{X: float32(w * stride), Y: float32(h * stride)}
			for range perCell {
				grid = append(grid, p)
			}
		}
	}
	return grid
}
