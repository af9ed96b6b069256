// Package vectorstore is the in-memory approximate nearest-neighbor
// layer over coder/hnsw, bounded by (project_id, ref, model_version) —
// each such triple gets its own graph, rebuilt from relstore's
// semantic_vectors table on demand rather than persisted to its own
// file, since the relational store is already the durable record.
package vectorstore

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/signalridge/cruxe/internal/cerrors"
)

// Key scopes one ANN graph.
type Key struct {
	ProjectID    string
	Ref          string
	ModelVersion string
}

func (k Key) String() string {
	return k.ProjectID + "|" + k.Ref + "|" + k.ModelVersion
}

// Match is one nearest-neighbor result.
type Match struct {
	ID       string // caller-defined; CompositeID joins symbol_stable_id and snippet_hash with "\x1f"
	Distance float32
	Score    float32
}

// Store holds one HNSW graph per (project, ref, model_version) triple.
type Store struct {
	mu         sync.RWMutex
	graphs     map[string]*graphEntry
	dimensions int
	metric     string
}

type graphEntry struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	idMap  map[string]uint64
	keyMap map[uint64]string
	next   uint64
}

// New creates a store configured for a fixed embedding dimension and
// distance metric ("cos" or "l2"), shared across every graph it manages.
func New(dimensions int, metric string) *Store {
	if metric == "" {
		metric = "cos"
	}
	return &Store{graphs: make(map[string]*graphEntry), dimensions: dimensions, metric: metric}
}

func (s *Store) entry(key Key) *graphEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	e, ok := s.graphs[k]
	if ok {
		return e
	}
	g := hnsw.NewGraph[uint64]()
	switch s.metric {
	case "l2":
		g.Distance = hnsw.EuclideanDistance
	default:
		g.Distance = hnsw.CosineDistance
	}
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25
	e = &graphEntry{graph: g, idMap: make(map[string]uint64), keyMap: make(map[uint64]string)}
	s.graphs[k] = e
	return e
}

// Upsert inserts or replaces a vector under id within key's graph, using
// the same lazy-deletion-on-replace approach as the teacher's HNSW
// wrapper: the old node is orphaned rather than removed, since
// coder/hnsw does not cleanly support deleting the last remaining node.
func (s *Store) Upsert(key Key, id string, vec []float32) error {
	if len(vec) != s.dimensions {
		return cerrors.New(cerrors.InternalError, fmt.Sprintf("vector dimension mismatch: want %d got %d", s.dimensions, len(vec)), nil)
	}
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if oldKey, exists := e.idMap[id]; exists {
		delete(e.keyMap, oldKey)
		delete(e.idMap, id)
	}

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	if s.metric == "cos" {
		normalizeInPlace(normalized)
	}

	nodeKey := e.next
	e.next++
	e.graph.Add(hnsw.MakeNode(nodeKey, normalized))
	e.idMap[id] = nodeKey
	e.keyMap[nodeKey] = id
	return nil
}

// Delete orphans a vector's node so it no longer surfaces in Search.
func (s *Store) Delete(key Key, id string) {
	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if k, ok := e.idMap[id]; ok {
		delete(e.keyMap, k)
		delete(e.idMap, id)
	}
}

// Search returns the k nearest vectors to query within key's graph.
func (s *Store) Search(key Key, query []float32, k int) ([]Match, error) {
	if len(query) != s.dimensions {
		return nil, cerrors.New(cerrors.InternalError, fmt.Sprintf("query dimension mismatch: want %d got %d", s.dimensions, len(query)), nil)
	}
	e := s.entry(key)
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if s.metric == "cos" {
		normalizeInPlace(normalized)
	}

	nodes := e.graph.Search(normalized, k)
	out := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		id, ok := e.keyMap[n.Key]
		if !ok {
			continue
		}
		dist := e.graph.Distance(normalized, n.Value)
		out = append(out, Match{ID: id, Distance: dist, Score: distanceToScore(dist, s.metric)})
	}
	return out, nil
}

// Count returns the number of live (non-orphaned) vectors in key's graph.
func (s *Store) Count(key Key) int {
	e := s.entry(key)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idMap)
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
