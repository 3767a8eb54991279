// Package rankings serves chart rankings from a TTL cache backed by the
// charts feed, falling back to stale entries when the feed is down.
package rankings

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Aman-CERP/podsearch/internal/charts"
)

// DefaultTTL is how long a cached chart counts as fresh.
const DefaultTTL = time.Hour

// Key identifies one cached chart.
type Key struct {
	Region string
	Type   charts.Type
}

// Entry is an immutable cached chart. The cache copies items on the way in
// and out, so callers may modify what they pass or receive.
type Entry struct {
	Items    []Item
	CachedAt time.Time
}

// Cache stores charts per (region, type). Entries are replaced whole, so
// concurrent writers to one key resolve last-writer-wins and readers never
// observe a partial entry.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // Key -> *Entry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a cache. ttl <= 0 selects DefaultTTL.
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) load(k Key) (*Entry, bool) {
	v, ok := c.entries.Load(k)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

func (c *Cache) expired(e *Entry) bool {
	return c.now().After(e.CachedAt.Add(c.ttl))
}

// Get returns the fresh items for (region, t). An expired entry is evicted
// and reported as absent.
func (c *Cache) Get(region string, t charts.Type) ([]Item, bool) {
	e, ok := c.fresh(Key{Region: region, Type: t})
	if !ok {
		return nil, false
	}
	return cloneItems(e.Items), true
}

func (c *Cache) fresh(k Key) (*Entry, bool) {
	e, ok := c.load(k)
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.entries.CompareAndDelete(k, e)
		return nil, false
	}
	return e, true
}

// GetStale returns the entry for (region, t) whether or not it expired.
// It never evicts.
func (c *Cache) GetStale(region string, t charts.Type) (Entry, bool) {
	e, ok := c.load(Key{Region: region, Type: t})
	if !ok {
		return Entry{}, false
	}
	return Entry{Items: cloneItems(e.Items), CachedAt: e.CachedAt}, true
}

// Put stores items stamped with the current time, replacing any entry.
func (c *Cache) Put(region string, t charts.Type, items []Item) time.Time {
	now := c.now()
	c.entries.Store(Key{Region: region, Type: t}, &Entry{Items: cloneItems(items), CachedAt: now})
	return now
}

// CachedAt returns when the entry for (region, t) was stored, expired or not.
func (c *Cache) CachedAt(region string, t charts.Type) (time.Time, bool) {
	e, ok := c.load(Key{Region: region, Type: t})
	if !ok {
		return time.Time{}, false
	}
	return e.CachedAt, true
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.entries.Clear()
}

// Keys returns the cached keys in no particular order.
func (c *Cache) Keys() []Key {
	var keys []Key
	c.entries.Range(func(k, _ any) bool {
		keys = append(keys, k.(Key))
		return true
	})
	return keys
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.Genres = slices.Clone(it.Genres)
		it.ExternalURLs = maps.Clone(it.ExternalURLs)
		if it.EpisodeCount != nil {
			n := *it.EpisodeCount
			it.EpisodeCount = &n
		}
		out[i] = it
	}
	return out
}
