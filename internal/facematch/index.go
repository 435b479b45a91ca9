package facematch

import (
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for 512-dim face embeddings
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswEfSearch is the search candidate pool size.
	hnswEfSearch = 100
)

// nearestIndex is an approximate nearest-neighbor index over registry
// embeddings keyed by record ID. It only serves ranked lookups; threshold
// decisions always scan the registry.
type nearestIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

func newNearestIndex() *nearestIndex {
	return &nearestIndex{graph: newGraph()}
}

// add inserts one record.
func (x *nearestIndex) add(r FaceRecord) {
	if len(r.Embedding) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph.Add(hnsw.MakeNode(r.ID.String(), []float32(r.Embedding)))
}

// rebuild replaces the graph with one built from records.
func (x *nearestIndex) rebuild(records []FaceRecord) {
	g := newGraph()
	for _, r := range records {
		if len(r.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(r.ID.String(), []float32(r.Embedding)))
	}
	x.mu.Lock()
	x.graph = g
	x.mu.Unlock()
}

// search returns up to k record IDs ordered by approximate distance.
func (x *nearestIndex) search(query []float32, k int) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.graph.Len() == 0 || k <= 0 {
		return nil
	}
	nodes := x.graph.Search(query, k)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Key
	}
	return ids
}
