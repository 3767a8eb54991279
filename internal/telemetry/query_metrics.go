// Package telemetry records what people search for and how the service
// behaves. QueryMetrics keeps an in-memory picture of query patterns;
// Metrics exports counters and histograms to Prometheus.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a coarse latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one executed search.
type QueryEvent struct {
	Query       string
	Target      string // episodes or shows
	Mode        string // mode actually executed
	Fallback    bool
	ResultCount int64
	Latency     time.Duration
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms lowercases query and keeps words of three or more bytes.
// CJK queries without spaces come back as a single term.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryMetricsSnapshot is a point-in-time copy of QueryMetrics.
type QueryMetricsSnapshot struct {
	ModeCounts          map[string]int64        `json:"mode_counts"`
	TargetCounts        map[string]int64        `json:"target_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	FallbackCount       int64                   `json:"fallback_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries with no results.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetricsConfig sizes the collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int
	ZeroResultsCapacity   int
	RecentQueriesCapacity int
}

// DefaultQueryMetricsConfig returns the default sizes.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects query patterns in memory. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	modes           map[string]int64
	targets         map[string]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	fallbackCount   int64
	repeatCount     int64
	startTime       time.Time
}

// NewQueryMetrics creates a collector. Zero capacities use the defaults.
func NewQueryMetrics(cfg QueryMetricsConfig) *QueryMetrics {
	def := DefaultQueryMetricsConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)
	return &QueryMetrics{
		modes:         make(map[string]int64),
		targets:       make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds one search to the aggregates.
func (m *QueryMetrics) Record(event QueryEvent) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.modes[event.Mode]++
	m.targets[event.Target]++
	if event.Fallback {
		m.fallbackCount++
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.ResultCount == 0 {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}

	m.latencies[LatencyToBucket(event.Latency)]++

	key := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.repeatCount++
	}
	m.recentQueries.Add(key, struct{}{})
}

func hashQuery(query string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(hash[:16])
}

// Snapshot copies the current aggregates. Top terms are ordered by count
// descending, then term.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	topTerms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortFunc(topTerms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})

	return &QueryMetricsSnapshot{
		ModeCounts:          maps.Clone(m.modes),
		TargetCounts:        maps.Clone(m.targets),
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: maps.Clone(m.latencies),
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		FallbackCount:       m.fallbackCount,
		ExactRepeatCount:    m.repeatCount,
		Since:               m.startTime,
	}
}
