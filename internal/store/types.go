// Package store provides the search index backends podsearch queries:
// an Elasticsearch-compatible HTTP client and a local backend built on
// bleve (BM25) and coder/hnsw (vectors).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Aman-CERP/podsearch/internal/query"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store is closed")

// ErrUnknownIndex is returned when a query names an index the backend does not hold.
var ErrUnknownIndex = errors.New("unknown index")

// Hit is one retrieved document.
type Hit struct {
	ID string
	// Source is the stored document, exactly as indexed minus its vector.
	Source json.RawMessage
	// Highlight maps field name to ordered snippet fragments.
	Highlight map[string][]string
	// Rank is the zero-based position within the list that produced the hit.
	Rank  int
	Score float64
}

// Result is the outcome of one query against one index.
type Result struct {
	// Hits is nil when the backend response carried no hit container at
	// all, and empty when it carried one with no documents.
	Hits []Hit
	// Total is the backend's total-hit estimate, nil when it reported none.
	Total *int64
}

// Backend is implemented by every index backend.
type Backend interface {
	Search(ctx context.Context, index string, q *query.Query) (*Result, error)
	Ping(ctx context.Context) error
	Close() error
}

// Document is a unit loaded into the local backend.
type Document struct {
	ID       string
	Source   json.RawMessage
	Language string
	Vector   []float32
}

// ErrDimensionMismatch indicates a vector whose length differs from the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func int64Ptr(v int64) *int64 { return &v }
