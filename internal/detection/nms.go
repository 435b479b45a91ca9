package detection

import "sort"

// IoU calculates Intersection over Union between two boxes.
// Returns 0 when the boxes do not intersect or the union is empty.
func IoU(a, b Box) float32 {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right, b.Right)
	bottom := min(a.Bottom, b.Bottom)

	if right < left || bottom < top {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Suppress performs greedy non-maximum suppression. Candidates are ordered by
// descending score (stable for ties) and any candidate whose IoU with an
// already kept one exceeds iouThreshold is dropped. The input is not modified.
func Suppress(candidates []Detection, iouThreshold float32) []Detection {
	if len(candidates) == 0 {
		return []Detection{}
	}

	sorted := make([]Detection, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Detection, 0, len(sorted))
	removed := make([]bool, len(sorted))
	for i := range sorted {
		if removed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if !removed[j] && IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				removed[j] = true
			}
		}
	}
	return kept
}
