package indexstore

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/model"
)

// VectorFilters restricts a cosine-kNN query by chunk metadata equality.
type VectorFilters struct {
	Framework     string
	ComponentType string
	Layer         string
	Language      string
}

func (f VectorFilters) empty() bool {
	return f.Framework == "" && f.ComponentType == "" && f.Layer == "" && f.Language == ""
}

func (f VectorFilters) matches(meta vectorMeta) bool {
	if f.Framework != "" && meta.Framework != f.Framework {
		return false
	}
	if f.ComponentType != "" && meta.ComponentType != f.ComponentType {
		return false
	}
	if f.Layer != "" && meta.Layer != f.Layer {
		return false
	}
	if f.Language != "" && meta.Language != f.Language {
		return false
	}
	return true
}

// VectorHit is one result of a cosine-kNN query.
type VectorHit struct {
	ChunkID    string
	Similarity float64 // max(0, 1 - cosine_distance)
}

type vectorMeta struct {
	RelPath       string
	Framework     string
	ComponentType string
	Layer         string
	Language      string
}

// VectorStore is the dense-vector adapter: upsert/query dense
// vectors with metadata filters over an HNSW graph (github.com/coder/hnsw),
// carrying a build marker sidecar so the manifest validator can detect
// cross-build mixing.
type VectorStore struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	idToKey map[string]uint64
	keyToID map[uint64]string
	meta    map[string]vectorMeta
	nextKey uint64
	deleted map[string]struct{} // removed paths awaiting graph compaction
}

// NewVectorStore creates an empty cosine-similarity HNSW vector store.
func NewVectorStore(dimensions int) *VectorStore {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 32
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &VectorStore{
		graph:      graph,
		dimensions: dimensions,
		idToKey:    make(map[string]uint64),
		keyToID:    make(map[uint64]string),
		meta:       make(map[string]vectorMeta),
		deleted:    make(map[string]struct{}),
	}
}

// Upsert inserts or replaces vectors for the given chunks. Each chunk's
// Embedding field must be populated and match the store's dimension.
func (s *VectorStore) Upsert(ctx context.Context, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return errs.New(errs.ErrCodeDimensionMismatch, errs.CodeInvalidParams,
				fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", s.dimensions, len(c.Embedding)), nil)
		}
	}

	for _, c := range chunks {
		if oldKey, exists := s.idToKey[c.ID]; exists {
			delete(s.keyToID, oldKey)
			delete(s.idToKey, c.ID)
		}

		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		normalizeInPlace(vec)

		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idToKey[c.ID] = key
		s.keyToID[key] = c.ID
		s.meta[c.ID] = vectorMeta{
			RelPath:       c.RelPath,
			Framework:     c.Framework,
			ComponentType: c.ComponentType,
			Layer:         c.Layer,
			Language:      c.Language,
		}
		delete(s.deleted, c.ID)
	}
	return nil
}

// CosineKNN returns up to k chunk IDs nearest the query vector, honoring
// filters. Filtering happens post-search with widening oversample passes
// since the underlying graph has no native predicate support.
func (s *VectorStore) CosineKNN(ctx context.Context, query []float32, k int, filters VectorFilters) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimensions {
		return nil, errs.New(errs.ErrCodeDimensionMismatch, errs.CodeInvalidParams,
			fmt.Sprintf("query embedding dimension mismatch: expected %d, got %d", s.dimensions, len(query)), nil)
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []VectorHit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	// Widen the search until we have k matching hits or have exhausted the graph.
	oversample := k
	if filters.empty() {
		oversample = k
	} else {
		oversample = k * 4
	}
	if oversample > s.graph.Len() {
		oversample = s.graph.Len()
	}

	var hits []VectorHit
	seen := make(map[string]struct{})
	for attempts := 0; attempts < 4; attempts++ {
		nodes := s.graph.Search(q, oversample)
		hits = hits[:0]
		for id := range seen {
			delete(seen, id)
		}
		for _, node := range nodes {
			id, ok := s.keyToID[node.Key]
			if !ok {
				continue // lazily deleted
			}
			if _, skip := s.deleted[id]; skip {
				continue
			}
			if !filters.empty() && !filters.matches(s.meta[id]) {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			distance := s.graph.Distance(q, node.Value)
			similarity := 1.0 - float64(distance)
			if similarity < 0 {
				similarity = 0
			}
			hits = append(hits, VectorHit{ChunkID: id, Similarity: similarity})
		}
		if len(hits) >= k || oversample >= s.graph.Len() {
			break
		}
		oversample *= 2
		if oversample > s.graph.Len() {
			oversample = s.graph.Len()
		}
	}

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByPaths removes every vector recorded under the given relative
// paths.
func (s *VectorStore) DeleteByPaths(ctx context.Context, relPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gone := make(map[string]struct{}, len(relPaths))
	for _, p := range relPaths {
		gone[p] = struct{}{}
	}
	for id, meta := range s.meta {
		if _, ok := gone[meta.RelPath]; !ok {
			continue
		}
		if key, ok := s.idToKey[id]; ok {
			delete(s.keyToID, key)
			delete(s.idToKey, id)
		}
		delete(s.meta, id)
		s.deleted[id] = struct{}{}
	}
	return nil
}

// AllIDs returns the chunk IDs of every live vector, for cross-store
// consistency checks.
func (s *VectorStore) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.idToKey))
	for id := range s.idToKey {
		ids = append(ids, id)
	}
	return ids
}

// DropAll empties the store entirely.
func (s *VectorStore) DropAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 32
	graph.EfSearch = 64
	graph.Ml = 0.25
	s.graph = graph
	s.idToKey = make(map[string]uint64)
	s.keyToID = make(map[uint64]string)
	s.meta = make(map[string]vectorMeta)
	s.deleted = make(map[string]struct{})
	s.nextKey = 0
	return nil
}

// Count returns the number of live (non-deleted) vectors.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idToKey)
}

type vectorPersisted struct {
	Dimensions int
	IDToKey    map[string]uint64
	Meta       map[string]vectorMeta
	NextKey    uint64
}

// Save persists the HNSW graph, its metadata and a build marker sidecar.
// Each file is written to a temp file then renamed into place, so none is
// ever seen half-written; the three renames are separate steps.
func (s *VectorStore) Save(dir string, marker model.VectorBuildMarker) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create vector store dir: %w", err)
	}

	graphPath := filepath.Join(dir, "graph.bin")
	if err := writeAtomic(graphPath, func(f *os.File) error {
		return s.graph.Export(f)
	}); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	metaPath := filepath.Join(dir, "meta.gob")
	persisted := vectorPersisted{Dimensions: s.dimensions, IDToKey: s.idToKey, Meta: s.meta, NextKey: s.nextKey}
	if err := writeAtomic(metaPath, func(f *os.File) error {
		return gob.NewEncoder(f).Encode(persisted)
	}); err != nil {
		return fmt.Errorf("save vector metadata: %w", err)
	}

	markerPath := filepath.Join(dir, "index-build.json")
	if err := writeAtomic(markerPath, func(f *os.File) error {
		return json.NewEncoder(f).Encode(marker)
	}); err != nil {
		return fmt.Errorf("save build marker: %w", err)
	}

	return nil
}

// Load reopens a vector store previously written by Save.
func Load(dir string) (*VectorStore, model.VectorBuildMarker, error) {
	var marker model.VectorBuildMarker
	markerPath := filepath.Join(dir, "index-build.json")
	data, err := os.ReadFile(markerPath)
	if err != nil {
		return nil, marker, errs.Corrupted("vector store build marker missing: " + err.Error())
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, marker, errs.Corrupted("vector store build marker unreadable: " + err.Error())
	}

	metaPath := filepath.Join(dir, "meta.gob")
	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, marker, errs.Corrupted("vector store metadata missing: " + err.Error())
	}
	defer mf.Close()
	var persisted vectorPersisted
	if err := gob.NewDecoder(mf).Decode(&persisted); err != nil {
		return nil, marker, errs.Corrupted("vector store metadata unreadable: " + err.Error())
	}

	graphPath := filepath.Join(dir, "graph.bin")
	gf, err := os.Open(graphPath)
	if err != nil {
		return nil, marker, errs.Corrupted("vector store graph missing: " + err.Error())
	}
	defer gf.Close()
	graph := hnsw.NewGraph[uint64]()
	if err := graph.Import(bufio.NewReader(gf)); err != nil {
		return nil, marker, errs.Corrupted("vector store graph unreadable: " + err.Error())
	}
	graph.Distance = hnsw.CosineDistance

	keyToID := make(map[uint64]string, len(persisted.IDToKey))
	for id, key := range persisted.IDToKey {
		keyToID[key] = id
	}

	s := &VectorStore{
		graph:      graph,
		dimensions: persisted.Dimensions,
		idToKey:    persisted.IDToKey,
		keyToID:    keyToID,
		meta:       persisted.Meta,
		nextKey:    persisted.NextKey,
		deleted:    make(map[string]struct{}),
	}
	return s, marker, nil
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
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

// IsCorruptedStorageError reports whether err's text matches the known
// storage-corruption signals.
func IsCorruptedStorageError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range []string{"no vector column", "not found", "does not exist", "corrupted", "schema"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
