package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

var _ database.FaceWriter = (*Pool)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS faces (
		id          CHAR(36) NOT NULL PRIMARY KEY,
		identity    VARCHAR(255) NOT NULL,
		label       VARCHAR(255) NOT NULL,
		embedding   MEDIUMBLOB NOT NULL,
		bbox_json   TEXT NULL,
		det_score   DOUBLE NOT NULL DEFAULT 0,
		source      TEXT NOT NULL,
		model       VARCHAR(255) NOT NULL DEFAULT '',
		dim         INT NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		UNIQUE KEY uq_faces_label (label)
	) CHARACTER SET utf8mb4
`

const faceColumns = `id, identity, label, embedding, bbox_json, det_score, source, model, dim, created_at`

// EnsureSchema creates the faces table when missing.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create faces table: %w", err)
	}
	return nil
}

// encodeEmbedding packs the vector as little-endian float32 values.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

// ListFaces returns every stored face ordered by creation time.
func (p *Pool) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+faceColumns+` FROM faces ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	for rows.Next() {
		face, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// GetFace retrieves a face by identity label.
func (p *Pool) GetFace(ctx context.Context, identity string) (*database.StoredFace, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+faceColumns+` FROM faces WHERE label = ?`, facematch.NormalizeIdentity(identity))
	face, err := scanFace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &face, nil
}

// Count returns the total number of faces stored.
func (p *Pool) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindNearest scores every stored face in memory; MariaDB has no vector
// distance operator for BLOB columns.
func (p *Pool) FindNearest(ctx context.Context, emb []float32, limit int) ([]database.StoredFace, []float64, error) {
	faces, err := p.ListFaces(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rankFaces(faces, emb, limit)
}

func rankFaces(faces []database.StoredFace, emb []float32, limit int) ([]database.StoredFace, []float64, error) {
	type scored struct {
		face     database.StoredFace
		distance float64
	}
	all := make([]scored, len(faces))
	for i, f := range faces {
		all[i] = scored{face: f, distance: embedding.SquaredDistance(emb, f.Embedding)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].distance < all[j].distance })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]database.StoredFace, len(all))
	distances := make([]float64, len(all))
	for i, s := range all {
		out[i] = s.face
		distances[i] = s.distance
	}
	return out, distances, nil
}

// SaveFace stores a face, replacing any face with the same label.
func (p *Pool) SaveFace(ctx context.Context, face database.StoredFace) error {
	if face.Label == "" {
		face.Label = facematch.NormalizeIdentity(face.Identity)
	}
	if face.ID == uuid.Nil {
		face.ID = uuid.New()
	}
	if face.Dim == 0 {
		face.Dim = len(face.Embedding)
	}

	var bbox any
	if len(face.BBox) > 0 {
		data, err := json.Marshal(face.BBox)
		if err != nil {
			return fmt.Errorf("marshal bbox: %w", err)
		}
		bbox = string(data)
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO faces (`+faceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, NOW(6)))
		ON DUPLICATE KEY UPDATE
			id = VALUES(id),
			identity = VALUES(identity),
			embedding = VALUES(embedding),
			bbox_json = VALUES(bbox_json),
			det_score = VALUES(det_score),
			source = VALUES(source),
			model = VALUES(model),
			dim = VALUES(dim),
			created_at = VALUES(created_at)
	`,
		face.ID.String(),
		face.Identity,
		face.Label,
		encodeEmbedding(face.Embedding),
		bbox,
		face.DetScore,
		face.Source,
		face.Model,
		face.Dim,
		sql.NullTime{Time: face.CreatedAt, Valid: !face.CreatedAt.IsZero()},
	)
	if err != nil {
		return fmt.Errorf("save face %q: %w", face.Identity, err)
	}
	return nil
}

// DeleteFace removes the face with the given identity label.
func (p *Pool) DeleteFace(ctx context.Context, identity string) (bool, error) {
	res, err := p.db.ExecContext(ctx, "DELETE FROM faces WHERE label = ?", facematch.NormalizeIdentity(identity))
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
func (p *Pool) ClearFaces(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM faces"); err != nil {
		return fmt.Errorf("clear faces: %w", err)
	}
	return nil
}

func scanFace(scanner interface{ Scan(...any) error }) (database.StoredFace, error) {
	var face database.StoredFace
	var id string
	var blob []byte
	var bbox sql.NullString

	err := scanner.Scan(&id, &face.Identity, &face.Label, &blob, &bbox,
		&face.DetScore, &face.Source, &face.Model, &face.Dim, &face.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return face, err
		}
		return face, fmt.Errorf("scan face: %w", err)
	}

	if face.ID, err = uuid.Parse(id); err != nil {
		return face, fmt.Errorf("parse face id %q: %w", id, err)
	}
	if face.Embedding, err = decodeEmbedding(blob); err != nil {
		return face, err
	}
	if bbox.Valid && bbox.String != "" {
		if err := json.Unmarshal([]byte(bbox.String), &face.BBox); err != nil {
			return face, fmt.Errorf("parse bbox: %w", err)
		}
	}
	return face, nil
}
