package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const faceColumns = `id, identity, label, embedding, bbox, det_score, source, model, dim, created_at`

// FaceRepository provides PostgreSQL-backed face storage.
type FaceRepository struct {
	pool *Pool
}

var _ database.FaceWriter = (*FaceRepository)(nil)

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// ListFaces returns every stored face ordered by creation time.
func (r *FaceRepository) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+faceColumns+` FROM faces ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	faces, _, err := scanFaces(rows, false)
	return faces, err
}

// GetFace retrieves a face by identity label.
func (r *FaceRepository) GetFace(ctx context.Context, identity string) (*database.StoredFace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+faceColumns+` FROM faces WHERE label = $1`, facematch.NormalizeIdentity(identity))
	face, err := scanFaceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &face, nil
}

// Count returns the total number of faces stored.
func (r *FaceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindNearest orders faces by L2 distance using the pgvector index. The
// returned distances are squared to match the registry score.
func (r *FaceRepository) FindNearest(
	ctx context.Context, embedding []float32, limit int,
) ([]database.StoredFace, []float64, error) {
	query := `
		SELECT ` + faceColumns + `, embedding <-> $1::vector AS distance
		FROM faces
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest faces: %w", err)
	}
	defer rows.Close()

	faces, distances, err := scanFaces(rows, true)
	if err != nil {
		return nil, nil, err
	}
	for i, d := range distances {
		distances[i] = d * d
	}
	return faces, distances, nil
}

// SaveFace stores a face, replacing any face with the same label.
func (r *FaceRepository) SaveFace(ctx context.Context, face database.StoredFace) error {
	if face.Label == "" {
		face.Label = facematch.NormalizeIdentity(face.Identity)
	}
	if face.Dim == 0 {
		face.Dim = len(face.Embedding)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO faces (id, identity, label, embedding, bbox, det_score, source, model, dim, created_at)
		VALUES ($1, $2, $3, $4::vector, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		ON CONFLICT (label) DO UPDATE SET
			id = EXCLUDED.id,
			identity = EXCLUDED.identity,
			embedding = EXCLUDED.embedding,
			bbox = EXCLUDED.bbox,
			det_score = EXCLUDED.det_score,
			source = EXCLUDED.source,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = EXCLUDED.created_at
	`,
		face.ID,
		face.Identity,
		face.Label,
		pgvector.NewVector(face.Embedding),
		pq.Array(face.BBox),
		face.DetScore,
		face.Source,
		face.Model,
		face.Dim,
		nullTime(face),
	)
	if err != nil {
		return fmt.Errorf("save face %q: %w", face.Identity, err)
	}
	return nil
}

// DeleteFace removes the face with the given identity label.
func (r *FaceRepository) DeleteFace(ctx context.Context, identity string) (bool, error) {
	res, err := r.pool.Exec(ctx, "DELETE FROM faces WHERE label = $1", facematch.NormalizeIdentity(identity))
	if err != nil {
		return false, fmt.Errorf("delete face: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ClearFaces removes all faces.
func (r *FaceRepository) ClearFaces(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM faces"); err != nil {
		return fmt.Errorf("clear faces: %w", err)
	}
	return nil
}

func nullTime(face database.StoredFace) sql.NullTime {
	return sql.NullTime{Time: face.CreatedAt, Valid: !face.CreatedAt.IsZero()}
}

// scanFaceRow scans a single row into a StoredFace, with optional extra scan destinations
// appended after the standard face columns (e.g., a distance column).
func scanFaceRow(scanner interface{ Scan(...any) error }, extraDest ...any) (database.StoredFace, error) {
	var face database.StoredFace
	var vec pgvector.Vector
	var bbox pq.Float64Array

	dest := make([]any, 0, 10+len(extraDest))
	dest = append(dest,
		&face.ID,
		&face.Identity,
		&face.Label,
		&vec,
		&bbox,
		&face.DetScore,
		&face.Source,
		&face.Model,
		&face.Dim,
		&face.CreatedAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return face, err
		}
		return face, fmt.Errorf("scan face: %w", err)
	}

	face.Embedding = vec.Slice()
	face.BBox = []float64(bbox)
	return face, nil
}

// scanFaces scans all rows; withDistance reads a trailing distance column.
func scanFaces(rows *sql.Rows, withDistance bool) ([]database.StoredFace, []float64, error) {
	var faces []database.StoredFace
	var distances []float64
	for rows.Next() {
		var distance float64
		var extra []any
		if withDistance {
			extra = append(extra, &distance)
		}
		face, err := scanFaceRow(rows, extra...)
		if err != nil {
			return nil, nil, err
		}
		faces = append(faces, face)
		if withDistance {
			distances = append(distances, distance)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, distances, nil
}
