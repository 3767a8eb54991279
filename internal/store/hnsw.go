package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/coder/hnsw"
)

// VectorIndex is a cosine HNSW index keyed by document ID.
type VectorIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	idMap    map[string]uint64
	keyMap   map[uint64]string
	language map[string]string
	nextKey  uint64

	closed bool
}

// vectorMetadata is persisted next to the exported graph.
type vectorMetadata struct {
	IDMap      map[string]uint64
	Language   map[string]string
	NextKey    uint64
	Dimensions int
}

// NewVectorIndex creates an empty index for vectors of the given dimension.
func NewVectorIndex(dimensions int) *VectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &VectorIndex{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
		language:   make(map[string]string),
	}
}

// Add inserts the vectors of docs. Documents without a vector are skipped.
// Re-adding an ID orphans its old node instead of deleting it from the graph.
func (v *VectorIndex) Add(ctx context.Context, docs []Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		if len(doc.Vector) != v.dimensions {
			return ErrDimensionMismatch{Expected: v.dimensions, Got: len(doc.Vector)}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if old, ok := v.idMap[doc.ID]; ok {
			delete(v.keyMap, old)
		}
		key := v.nextKey
		v.nextKey++

		vec := slices.Clone(doc.Vector)
		normalizeInPlace(vec)
		v.graph.Add(hnsw.MakeNode(key, vec))

		v.idMap[doc.ID] = key
		v.keyMap[key] = doc.ID
		if doc.Language != "" {
			v.language[doc.ID] = strings.ToLower(strings.TrimSpace(doc.Language))
		}
	}
	return nil
}

// VectorMatch is one nearest-neighbour result.
type VectorMatch struct {
	ID    string
	Score float32
}

// Search returns up to k neighbours of vec, most similar first. When
// languages is non-empty only documents in those languages are returned.
func (v *VectorIndex) Search(ctx context.Context, vec []float32, k, candidates int, languages []string) ([]VectorMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, ErrClosed
	}
	if len(vec) != v.dimensions {
		return nil, ErrDimensionMismatch{Expected: v.dimensions, Got: len(vec)}
	}
	if k <= 0 || v.graph.Len() == 0 {
		return []VectorMatch{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := slices.Clone(vec)
	normalizeInPlace(q)

	// Orphans and the language filter both shrink the result, so ask for
	// the full candidate pool and trim afterwards.
	nodes := v.graph.Search(q, max(k, candidates))

	out := make([]VectorMatch, 0, k)
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue
		}
		if len(languages) > 0 && !slices.Contains(languages, v.language[id]) {
			continue
		}
		dist := v.graph.Distance(q, node.Value)
		out = append(out, VectorMatch{ID: id, Score: 1 - dist/2})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Count returns the number of live vectors.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// Save exports the graph to path and its ID mappings to path.meta.
// Both files are written to a temp name first and renamed into place.
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return ErrClosed
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	err := writeAtomic(path, func(f *os.File) error {
		return v.graph.Export(f)
	})
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	meta := vectorMetadata{
		IDMap:      v.idMap,
		Language:   v.language,
		NextKey:    v.nextKey,
		Dimensions: v.dimensions,
	}
	err = writeAtomic(path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	})
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// Load replaces the index contents with those saved at path.
func (v *VectorIndex) Load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}

	mf, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = mf.Close() }()

	var meta vectorMetadata
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return fmt.Errorf("decode vector metadata: %w", err)
	}
	if meta.Dimensions != v.dimensions {
		return ErrDimensionMismatch{Expected: v.dimensions, Got: meta.Dimensions}
	}

	gf, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open graph file: %w", err)
	}
	defer func() { _ = gf.Close() }()

	// Import needs an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}

	v.idMap = meta.IDMap
	v.language = meta.Language
	if v.language == nil {
		v.language = make(map[string]string)
	}
	v.nextKey = meta.NextKey
	v.keyMap = make(map[uint64]string, len(v.idMap))
	for id, key := range v.idMap {
		v.keyMap[key] = id
	}
	return nil
}

// Close releases the graph.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.graph = nil
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// normalizeInPlace scales v to unit length. Zero vectors are left alone.
func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
