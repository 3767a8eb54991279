package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync/atomic"
)

// StaticEmbedder produces deterministic pseudo-random unit vectors seeded
// by the SHA-256 of the text. The vectors carry no meaning; the provider
// exists for development and tests where no model is running.
type StaticEmbedder struct {
	dims   int
	closed atomic.Bool
}

// NewStaticEmbedder creates a static embedder. dims <= 0 selects
// DefaultDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed returns the vector for text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dims), nil
	}

	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))

	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return normalizeVector(vec), nil
}

// Dimensions returns the configured dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns "static".
func (e *StaticEmbedder) ModelName() string { return "static" }

// Available reports true until Close.
func (e *StaticEmbedder) Available(context.Context) bool { return !e.closed.Load() }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.closed.Store(true)
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
