package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Aman-CERP/podsearch/internal/query"
)

// Local is an in-process backend holding one text index and one vector
// index per named collection ("episodes", "shows").
type Local struct {
	mu          sync.RWMutex
	path        string
	collections map[string]*collection
	closed      bool
}

type collection struct {
	text    *TextIndex
	vectors *VectorIndex
}

// CollectionStats reports document counts of one collection.
type CollectionStats struct {
	Documents uint64 `json:"documents"`
	Vectors   int    `json:"vectors"`
}

// OpenLocal opens (or creates) the named collections under dir. An empty
// dir keeps everything in memory.
func OpenLocal(dir string, dimensions int, names ...string) (*Local, error) {
	l := &Local{path: dir, collections: make(map[string]*collection, len(names))}

	for _, name := range names {
		textPath := ""
		if dir != "" {
			textPath = filepath.Join(dir, name+".bleve")
		}
		text, err := NewTextIndex(textPath)
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}

		vectors := NewVectorIndex(dimensions)
		if dir != "" {
			vecPath := filepath.Join(dir, name+".hnsw")
			if _, err := os.Stat(vecPath + ".meta"); err == nil {
				if err := vectors.Load(vecPath); err != nil {
					_ = text.Close()
					_ = l.Close()
					return nil, fmt.Errorf("collection %s: %w", name, err)
				}
			}
		}
		l.collections[name] = &collection{text: text, vectors: vectors}
	}
	return l, nil
}

func (l *Local) collection(name string) (*collection, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	c, ok := l.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	return c, nil
}

// Add indexes docs into the named collection.
func (l *Local) Add(ctx context.Context, index string, docs []Document) error {
	c, err := l.collection(index)
	if err != nil {
		return err
	}
	if err := c.text.Index(ctx, docs); err != nil {
		return err
	}
	return c.vectors.Add(ctx, docs)
}

// Search implements Backend.
func (l *Local) Search(ctx context.Context, index string, q *query.Query) (*Result, error) {
	c, err := l.collection(index)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case query.KindLexical:
		hits, total, err := c.text.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		return &Result{Hits: hits, Total: int64Ptr(total)}, nil

	case query.KindVector:
		matches, err := c.vectors.Search(ctx, q.Vector, q.K, q.NumCandidates, q.Languages)
		if err != nil {
			return nil, err
		}
		hits := make([]Hit, 0, len(matches))
		for _, m := range matches {
			src, err := c.text.Source(m.ID)
			if err != nil {
				return nil, fmt.Errorf("load source %s: %w", m.ID, err)
			}
			if src == nil {
				slog.Debug("local_vector_orphan", slog.String("index", index), slog.String("id", m.ID))
				continue
			}
			hits = append(hits, Hit{ID: m.ID, Source: src, Rank: len(hits), Score: float64(m.Score)})
		}
		return &Result{Hits: hits, Total: int64Ptr(int64(len(hits)))}, nil

	default:
		return nil, fmt.Errorf("unsupported query kind %q", q.Kind)
	}
}

// Save persists the vector indexes. Bleve persists on its own.
func (l *Local) Save() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.path == "" {
		return nil
	}
	for name, c := range l.collections {
		if err := c.vectors.Save(filepath.Join(l.path, name+".hnsw")); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return nil
}

// Stats returns per-collection counts.
func (l *Local) Stats() (map[string]CollectionStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	out := make(map[string]CollectionStats, len(l.collections))
	for name, c := range l.collections {
		n, err := c.text.Count()
		if err != nil {
			return nil, err
		}
		out[name] = CollectionStats{Documents: n, Vectors: c.vectors.Count()}
	}
	return out, nil
}

// Ping implements Backend.
func (l *Local) Ping(context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Backend.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, c := range l.collections {
		errs = append(errs, c.text.Close(), c.vectors.Close())
	}
	return errors.Join(errs...)
}

var _ Backend = (*Local)(nil)
