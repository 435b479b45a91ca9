package facematch

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/embedding"
)

// Registration is a request to enroll one identity.
type Registration struct {
	Identity  string
	Embedding embedding.Embedding // unit embedding of the single detected face
	FaceCount int                 // faces found in the enrolment image
	Source    string              // where the face came from, e.g. a file name
}

// Registry holds the known identities. Reads run concurrently; a
// registration checks for duplicates and inserts under one write lock.
type Registry struct {
	engine Engine

	mu      sync.RWMutex
	records []FaceRecord
	byID    map[uuid.UUID]int
	labels  map[string]uuid.UUID // normalized identity -> record ID
	index   *nearestIndex

	now func() time.Time
}

// NewRegistry creates an empty registry scored by engine.
func NewRegistry(engine Engine) *Registry {
	return &Registry{
		engine: engine,
		byID:   make(map[uuid.UUID]int),
		labels: make(map[string]uuid.UUID),
		index:  newNearestIndex(),
		now:    time.Now,
	}
}

// Engine returns the scoring engine.
func (r *Registry) Engine() Engine {
	return r.engine
}

// Register enrolls a face. The face count is checked first, then the label
// and the embedding are compared against every record; a record scoring
// under the threshold rejects the registration as a duplicate.
func (r *Registry) Register(reg Registration) (FaceRecord, Outcome, error) {
	switch {
	case reg.FaceCount <= 0:
		return FaceRecord{}, OutcomeNoFaceDetected, ErrNoFaceDetected
	case reg.FaceCount > 1:
		return FaceRecord{}, OutcomeMultipleFacesDetected,
			fmt.Errorf("%w: found %d faces", ErrMultipleFacesDetected, reg.FaceCount)
	}

	label := NormalizeIdentity(reg.Identity)
	if label == "" {
		return FaceRecord{}, "", ErrEmptyIdentity
	}
	if len(reg.Embedding) == 0 {
		return FaceRecord{}, "", embedding.ErrZeroNorm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkDimension(r.records, reg.Embedding); err != nil {
		return FaceRecord{}, "", err
	}
	if id, ok := r.labels[label]; ok {
		existing := r.records[r.byID[id]]
		return FaceRecord{}, OutcomeDuplicateIdentity,
			fmt.Errorf("%w: label %q is taken by %q", ErrDuplicateIdentity, reg.Identity, existing.Identity)
	}
	for _, rec := range r.records {
		score := r.engine.Compare(reg.Embedding, rec.Embedding)
		if r.engine.withinThreshold(score) {
			return FaceRecord{}, OutcomeDuplicateIdentity,
				fmt.Errorf("%w: face matches %q (score %.4f)", ErrDuplicateIdentity, rec.Identity, score)
		}
	}

	rec := FaceRecord{
		ID:        uuid.New(),
		Identity:  reg.Identity,
		Embedding: append(embedding.Embedding(nil), reg.Embedding...),
		Source:    reg.Source,
		CreatedAt: r.now(),
	}
	r.insertLocked(rec)
	return rec, OutcomeSuccess, nil
}

// Recognize returns every record scoring under the threshold, best first.
// Ties keep registration order. An empty registry yields an empty slice.
func (r *Registry) Recognize(emb embedding.Embedding) ([]Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := checkDimension(r.records, emb); err != nil {
		return nil, err
	}
	matches := []Match{}
	for _, rec := range r.records {
		score := r.engine.Compare(emb, rec.Embedding)
		if r.engine.withinThreshold(score) {
			matches = append(matches, Match{ID: rec.ID, Identity: rec.Identity, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	return matches, nil
}

// Best returns the closest record under the threshold.
func (r *Registry) Best(emb embedding.Embedding) (Match, bool, error) {
	matches, err := r.Recognize(emb)
	if err != nil || len(matches) == 0 {
		return Match{}, false, err
	}
	return matches[0], true, nil
}

// Nearest returns up to k records closest to emb regardless of threshold,
// using the approximate index for candidate selection.
func (r *Registry) Nearest(emb embedding.Embedding, k int) ([]Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := checkDimension(r.records, emb); err != nil {
		return nil, err
	}
	ids := r.index.search(emb, k)
	matches := make([]Match, 0, len(ids))
	for _, key := range ids {
		id, err := uuid.Parse(key)
		if err != nil {
			continue
		}
		i, ok := r.byID[id]
		if !ok {
			continue
		}
		rec := r.records[i]
		matches = append(matches, Match{ID: rec.ID, Identity: rec.Identity, Score: r.engine.Compare(emb, rec.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	return matches, nil
}

// Restore replaces the registry content with previously admitted records,
// e.g. loaded from a database. Records are not re-checked for duplicates.
// On error the registry keeps its previous content.
func (r *Registry) Restore(records []FaceRecord) error {
	restored := make([]FaceRecord, 0, len(records))
	byID := make(map[uuid.UUID]int, len(records))
	labels := make(map[string]uuid.UUID, len(records))

	for _, rec := range records {
		if err := checkDimension(restored, rec.Embedding); err != nil {
			return fmt.Errorf("restoring %q: %w", rec.Identity, err)
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = r.now()
		}
		restored = append(restored, rec)
		byID[rec.ID] = len(restored) - 1
		labels[NormalizeIdentity(rec.Identity)] = rec.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = restored
	r.byID = byID
	r.labels = labels
	r.index.rebuild(restored)
	return nil
}

// Remove deletes the record with the given identity label.
func (r *Registry) Remove(identity string) (FaceRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.labels[NormalizeIdentity(identity)]
	if !ok {
		return FaceRecord{}, false
	}
	i := r.byID[id]
	removed := r.records[i]

	r.records = append(r.records[:i:i], r.records[i+1:]...)
	delete(r.labels, NormalizeIdentity(identity))
	r.byID = make(map[uuid.UUID]int, len(r.records))
	for j, rec := range r.records {
		r.byID[rec.ID] = j
	}
	r.index.rebuild(r.records)
	return removed, true
}

// Clear removes all records.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
	r.byID = make(map[uuid.UUID]int)
	r.labels = make(map[string]uuid.UUID)
	r.index.rebuild(nil)
}

// List returns the records in registration order.
func (r *Registry) List() []FaceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FaceRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// insertLocked appends rec; the caller holds the write lock.
func (r *Registry) insertLocked(rec FaceRecord) {
	r.records = append(r.records, rec)
	r.byID[rec.ID] = len(r.records) - 1
	r.labels[NormalizeIdentity(rec.Identity)] = rec.ID
	r.index.add(rec)
}

// checkDimension rejects embeddings whose length differs from records.
func checkDimension(records []FaceRecord, emb embedding.Embedding) error {
	if len(records) == 0 {
		return nil
	}
	if want := len(records[0].Embedding); len(emb) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), want)
	}
	return nil
}
