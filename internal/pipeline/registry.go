package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/detection"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/kozaktomas/face-matcher/internal/logging"
)

// RegisterResult describes one registration attempt.
type RegisterResult struct {
	Record  facematch.FaceRecord `json:"record"`
	Outcome facematch.Outcome    `json:"outcome"`
	Code    int                  `json:"code"`
	Faces   int                  `json:"faces"`
}

// Recognition is one face found in a query image with the identities it
// matches. A face with no match carries the closest known identity instead.
type Recognition struct {
	Detection detection.Detection `json:"detection"`
	Matches   []facematch.Match   `json:"matches"`
	Nearest   *facematch.Match    `json:"nearest,omitempty"`
	Embedding embedding.Embedding `json:"-"`
}

// Register enrolls the single face of img under identity. Images with no face
// or several faces are rejected before any embedding is computed.
func (p *Pipeline) Register(ctx context.Context, identity string, img image.Image, source string) (RegisterResult, error) {
	dets, err := p.Detect(ctx, img)
	if err != nil {
		return RegisterResult{}, err
	}

	reg := facematch.Registration{Identity: identity, FaceCount: len(dets), Source: source}
	var face Face
	if len(dets) == 1 {
		face, err = p.Extract(ctx, img, dets[0])
		if err != nil {
			return RegisterResult{}, err
		}
		reg.Embedding = face.Embedding
	}
	return p.register(ctx, reg, face)
}

// register admits reg into the registry and writes it through to the store.
func (p *Pipeline) register(ctx context.Context, reg facematch.Registration, face Face) (RegisterResult, error) {
	rec, outcome, err := p.registry.Register(reg)
	result := RegisterResult{Record: rec, Outcome: outcome, Code: outcome.Code(), Faces: reg.FaceCount}
	if err != nil {
		logging.Debug(logging.Fields{"identity": reg.Identity, "outcome": outcome, "error": err.Error()}, "registration rejected")
		return result, err
	}

	if p.store != nil {
		stored := database.FaceFromRecord(rec, p.opts.Model)
		stored.BBox = boxSlice(face.Detection.Box)
		stored.DetScore = float64(face.Detection.Score)
		if err := p.store.SaveFace(ctx, stored); err != nil {
			p.registry.Remove(rec.Identity)
			return RegisterResult{}, fmt.Errorf("persisting %q: %w", rec.Identity, err)
		}
	}

	logFace("registered face", face, logging.Fields{"identity": rec.Identity, "id": rec.ID.String()})
	return result, nil
}

// Recognize extracts every face in img and matches each against the registry.
// Faces whose landmarks cannot be aligned are skipped.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image) ([]Recognition, error) {
	return p.recognize(ctx, img, p.registry.Recognize)
}

// RecognizeBest is Recognize keeping only the best match of every face.
func (p *Pipeline) RecognizeBest(ctx context.Context, img image.Image) ([]Recognition, error) {
	return p.recognize(ctx, img, func(emb embedding.Embedding) ([]facematch.Match, error) {
		best, ok, err := p.registry.Best(emb)
		if err != nil || !ok {
			return []facematch.Match{}, err
		}
		return []facematch.Match{best}, nil
	})
}

func (p *Pipeline) recognize(
	ctx context.Context, img image.Image, match func(embedding.Embedding) ([]facematch.Match, error),
) ([]Recognition, error) {
	dets, err := p.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	results := make([]Recognition, 0, len(dets))
	for _, det := range dets {
		face, err := p.Extract(ctx, img, det)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn(logging.Fields{"error": err.Error(), "score": det.Score}, "skipping face")
			continue
		}
		matches, err := match(face.Embedding)
		if err != nil {
			return nil, err
		}
		rec := Recognition{Detection: det, Matches: matches, Embedding: face.Embedding}
		if len(matches) == 0 {
			nearest, err := p.registry.Nearest(face.Embedding, 1)
			if err != nil {
				return nil, err
			}
			if len(nearest) > 0 {
				rec.Nearest = &nearest[0]
			}
		}
		results = append(results, rec)
	}
	return results, nil
}

// Nearest returns up to k known faces closest to emb regardless of the
// threshold. An attached store answers the query; otherwise the registry
// index does.
func (p *Pipeline) Nearest(ctx context.Context, emb embedding.Embedding, k int) ([]facematch.Match, error) {
	if p.store == nil {
		return p.registry.Nearest(emb, k)
	}
	faces, distances, err := p.store.FindNearest(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("querying nearest faces: %w", err)
	}
	matches := make([]facematch.Match, len(faces))
	for i, f := range faces {
		matches[i] = facematch.Match{ID: f.ID, Identity: f.Identity, Score: distances[i]}
	}
	return matches, nil
}

// Remove deletes identity from the registry and the store.
func (p *Pipeline) Remove(ctx context.Context, identity string) (bool, error) {
	_, found := p.registry.Remove(identity)
	if p.store != nil {
		deleted, err := p.store.DeleteFace(ctx, identity)
		if err != nil {
			return found, fmt.Errorf("deleting %q: %w", identity, err)
		}
		found = found || deleted
	}
	return found, nil
}

// Clear empties the registry and the store.
func (p *Pipeline) Clear(ctx context.Context) error {
	p.registry.Clear()
	if p.store != nil {
		if err := p.store.ClearFaces(ctx); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
	}
	return nil
}

// Restore loads every face from reader into the registry, replacing its
// content, and returns the number of faces loaded.
func (p *Pipeline) Restore(ctx context.Context, reader database.FaceReader) (int, error) {
	faces, err := reader.ListFaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stored faces: %w", err)
	}
	if err := p.registry.Restore(database.Records(faces)); err != nil {
		return 0, err
	}
	logging.Info(logging.Fields{"faces": len(faces)}, "restored registry")
	return len(faces), nil
}

func boxSlice(b detection.Box) []float64 {
	if b == (detection.Box{}) {
		return nil
	}
	return []float64{float64(b.Left), float64(b.Top), float64(b.Right), float64(b.Bottom)}
}
