// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-matcher/internal/database"
	"github.com/kozaktomas/face-matcher/internal/embedding"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// MockFaceStore is a mock implementation of database.FaceWriter
type MockFaceStore struct {
	mu    sync.RWMutex
	faces map[string]database.StoredFace // keyed by normalized label
	order []string

	// Error injection
	ListError   error
	GetError    error
	CountError  error
	NearestErr  error
	SaveError   error
	DeleteError error
	ClearError  error

	// Call tracking
	SaveCalls   int
	DeleteCalls int
	ClearCalls  int
}

var _ database.FaceWriter = (*MockFaceStore)(nil)

// NewMockFaceStore creates a new mock face store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{faces: make(map[string]database.StoredFace)}
}

// AddFace adds a face to the mock store without counting it as a save
func (m *MockFaceStore) AddFace(face database.StoredFace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(face)
}

func (m *MockFaceStore) putLocked(face database.StoredFace) {
	if face.Label == "" {
		face.Label = facematch.NormalizeIdentity(face.Identity)
	}
	if _, ok := m.faces[face.Label]; !ok {
		m.order = append(m.order, face.Label)
	}
	m.faces[face.Label] = face
}

// ListFaces returns faces in insertion order
func (m *MockFaceStore) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredFace, 0, len(m.order))
	for _, label := range m.order {
		out = append(out, m.faces[label])
	}
	return out, nil
}

// GetFace retrieves a face by identity label
func (m *MockFaceStore) GetFace(ctx context.Context, identity string) (*database.StoredFace, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[facematch.NormalizeIdentity(identity)]
	if !ok {
		return nil, nil
	}
	return &face, nil
}

// Count returns the total number of faces
func (m *MockFaceStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// FindNearest ranks faces by squared distance
func (m *MockFaceStore) FindNearest(ctx context.Context, emb []float32, limit int) ([]database.StoredFace, []float64, error) {
	if m.NearestErr != nil {
		return nil, nil, m.NearestErr
	}
	faces, _ := m.ListFaces(ctx)
	sort.SliceStable(faces, func(i, j int) bool {
		return embedding.SquaredDistance(emb, faces[i].Embedding) < embedding.SquaredDistance(emb, faces[j].Embedding)
	})
	if limit > 0 && len(faces) > limit {
		faces = faces[:limit]
	}
	distances := make([]float64, len(faces))
	for i, f := range faces {
		distances[i] = embedding.SquaredDistance(emb, f.Embedding)
	}
	return faces, distances, nil
}

// SaveFace stores a face, replacing one with the same label
func (m *MockFaceStore) SaveFace(ctx context.Context, face database.StoredFace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	m.putLocked(face)
	return nil
}

// DeleteFace removes a face by identity label
func (m *MockFaceStore) DeleteFace(ctx context.Context, identity string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	label := facematch.NormalizeIdentity(identity)
	if _, ok := m.faces[label]; !ok {
		return false, nil
	}
	delete(m.faces, label)
	for i, l := range m.order {
		if l == label {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// ClearFaces removes all faces
func (m *MockFaceStore) ClearFaces(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearError != nil {
		return m.ClearError
	}
	m.faces = make(map[string]database.StoredFace)
	m.order = nil
	return nil
}
