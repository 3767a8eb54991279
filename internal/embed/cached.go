package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of query embeddings kept in memory.
// At 384 dimensions that is roughly 1.5MB.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text and
// model. Popular queries skip the network round trip.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner. size <= 0 selects DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(hash[:])
}

// Embed returns the cached vector or computes and stores it. Errors are
// not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close purges the cache and closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }

var _ Embedder = (*CachedEmbedder)(nil)
