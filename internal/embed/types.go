// Package embed turns query text into dense vectors for nearest-neighbour
// search. Several providers are supported behind the Embedder interface,
// and a Gate tracks whether the active provider is usable.
package embed

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	// DefaultDimensions matches paraphrase-multilingual-MiniLM-L12-v2.
	DefaultDimensions = 384

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 5 * time.Second
)

// ErrClosed is returned by embedders after Close.
var ErrClosed = errors.New("embedder is closed")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding of text. Blank text yields a zero vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector returns v scaled to unit length. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
