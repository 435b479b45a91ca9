// Package embedding provides vector math on face embeddings.
package embedding

import (
	"errors"
	"math"
)

// ErrZeroNorm is returned when normalizing a vector with no length.
var ErrZeroNorm = errors.New("embedding has zero norm")

// Embedding is a face feature vector. After Normalize it has unit L2 norm.
type Embedding []float32

// Norm returns the L2 norm.
func Norm(e []float32) float64 {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of raw.
func Normalize(raw []float32) (Embedding, error) {
	n := Norm(raw)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, ErrZeroNorm
	}
	out := make(Embedding, len(raw))
	for i, v := range raw {
		out[i] = float32(float64(v) / n)
	}
	return out, nil
}

// SquaredDistance returns the squared Euclidean distance. Vectors of different
// length are compared over their common prefix.
func SquaredDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := range n {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// EuclideanDistance returns the Euclidean distance.
func EuclideanDistance(a, b []float32) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}

// CosineSimilarity computes the cosine similarity between two embedding vectors
// Returns a value between -1 and 1, where 1 means identical
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
