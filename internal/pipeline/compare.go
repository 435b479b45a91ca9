package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/embedding"
)

// CompareResult is the outcome of comparing the faces of two images.
type CompareResult struct {
	Score             float64 `json:"score"` // squared Euclidean distance
	IsSame            bool    `json:"is_same"`
	Threshold         float64 `json:"threshold"`
	EuclideanDistance float64 `json:"euclidean_distance"`
	CosineSimilarity  float64 `json:"cosine_similarity"`
	Face1             Face    `json:"face1"`
	Face2             Face    `json:"face2"`
}

// Compare runs the single-face pipeline on both images in parallel and
// compares the two embeddings. Each image must contain exactly one face.
func (p *Pipeline) Compare(ctx context.Context, img1, img2 image.Image) (CompareResult, error) {
	var (
		wg    sync.WaitGroup
		faces [2]Face
		errs  [2]error
	)
	for i, img := range []image.Image{img1, img2} {
		wg.Add(1)
		go func(i int, img image.Image) {
			defer wg.Done()
			faces[i], errs[i] = p.DetectSingle(ctx, img)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("image%d: %w", i+1, errs[i])
			}
		}(i, img)
	}
	wg.Wait()

	if err := errors.Join(errs[0], errs[1]); err != nil {
		return CompareResult{}, err
	}
	return p.CompareFaces(faces[0], faces[1]), nil
}

// CompareFaces scores two already extracted faces.
func (p *Pipeline) CompareFaces(a, b Face) CompareResult {
	engine := p.registry.Engine()
	score := engine.Compare(a.Embedding, b.Embedding)
	return CompareResult{
		Score:             score,
		IsSame:            engine.IsMatch(score),
		Threshold:         engine.Threshold,
		EuclideanDistance: embedding.EuclideanDistance(a.Embedding, b.Embedding),
		CosineSimilarity:  embedding.CosineSimilarity(a.Embedding, b.Embedding),
		Face1:             a,
		Face2:             b,
	}
}
