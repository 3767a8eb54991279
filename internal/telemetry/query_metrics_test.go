package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		buf.Add(q)
	}

	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"q3", "q4", "q5"}, buf.Items())
}

func TestCircularBuffer_Empty(t *testing.T) {
	buf := NewCircularBuffer[int](0)

	assert.Empty(t, buf.Items())
	assert.Equal(t, 0, buf.Size())
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"daily", "news"}, ExtractTerms("  Daily NEWS at 9 "))
	assert.Nil(t, ExtractTerms(""))
	assert.Equal(t, []string{"科技新聞"}, ExtractTerms("科技新聞"))
}

func TestLatencyToBucket(t *testing.T) {
	assert.Equal(t, BucketP10, LatencyToBucket(5*time.Millisecond))
	assert.Equal(t, BucketP50, LatencyToBucket(10*time.Millisecond))
	assert.Equal(t, BucketP100, LatencyToBucket(99*time.Millisecond))
	assert.Equal(t, BucketP500, LatencyToBucket(250*time.Millisecond))
	assert.Equal(t, BucketP1000, LatencyToBucket(2*time.Second))
}

func TestQueryMetrics_RecordAndSnapshot(t *testing.T) {
	// Given: a collector and a mix of searches
	m := NewQueryMetrics(QueryMetricsConfig{})
	m.Record(QueryEvent{Query: "history podcast", Target: "episodes", Mode: "lexical", ResultCount: 3, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Query: "History podcast", Target: "episodes", Mode: "hybrid", ResultCount: 0, Latency: 120 * time.Millisecond})
	m.Record(QueryEvent{Query: "comedy", Target: "shows", Mode: "lexical", Fallback: true, ResultCount: 1, Latency: 20 * time.Millisecond})

	// When: taking a snapshot
	s := m.Snapshot()

	// Then: aggregates reflect every event
	assert.Equal(t, int64(3), s.TotalQueries)
	assert.Equal(t, map[string]int64{"lexical": 2, "hybrid": 1}, s.ModeCounts)
	assert.Equal(t, map[string]int64{"episodes": 2, "shows": 1}, s.TargetCounts)
	assert.Equal(t, []string{"History podcast"}, s.ZeroResultQueries)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, int64(1), s.FallbackCount)
	assert.Equal(t, int64(1), s.ExactRepeatCount)
	assert.InDelta(t, 33.33, s.ZeroResultPercentage(), 0.01)

	require.GreaterOrEqual(t, len(s.TopTerms), 3)
	assert.Equal(t, TermCount{Term: "history", Count: 2}, s.TopTerms[0])
	assert.Equal(t, TermCount{Term: "podcast", Count: 2}, s.TopTerms[1])
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := NewQueryMetrics(DefaultQueryMetricsConfig())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(QueryEvent{Query: "q", Mode: "lexical", ResultCount: int64(i % 2)})
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(50), s.TotalQueries)
	assert.Equal(t, int64(25), s.ZeroResultCount)
}

func TestQueryMetrics_NilIsNoop(t *testing.T) {
	var m *QueryMetrics
	assert.NotPanics(t, func() { m.Record(QueryEvent{Query: "x"}) })
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveSearch("episodes", "lexical", "ok", 10*time.Millisecond)
	m.ObserveSearch("episodes", "lexical", "ok", 20*time.Millisecond)
	m.SearchFallback("vector")
	m.ItemsSkipped("episodes", 2)
	m.ItemsSkipped("episodes", 0)
	m.RankingsServed("stale")
	m.UpstreamError("charts")
	m.CircuitState("index", 1)
	m.ObserveHTTP("GET", "/api/rankings", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.searchRequests.WithLabelValues("episodes", "lexical", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchFallbacks.WithLabelValues("vector")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.itemsSkipped.WithLabelValues("episodes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rankingsServed.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamErrors.WithLabelValues("charts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitState.WithLabelValues("index")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/rankings", "200")))

	n, err := testutil.GatherAndCount(m.Registry(), "podsearch_search_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch("episodes", "lexical", "ok", time.Millisecond)
		m.SearchFallback("hybrid")
		m.RankingsServed("cache")
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}
