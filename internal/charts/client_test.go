package charts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

const sampleChart = `{"feed":{"title":"Top Shows","country":"tw","updated":"2024-05-01T00:00:00Z","results":[
{"id":"111","name":"Show One","artistName":"Artist","artworkUrl100":"https://img/1.jpg","url":"https://podcasts.apple.com/tw/podcast/id111","genres":[{"genreId":"1310","name":"Music"}]},
{"id":"222","name":"Episode Two","collectionName":"Collection","artworkUrl100":"https://img/2.jpg"}
]}}`

func noRetry() perrors.RetryConfig {
	return perrors.RetryConfig{MaxRetries: 0}
}

func newChartServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestParseType(t *testing.T) {
	got, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypePodcast, got)

	got, err = ParseType("EPISODE")
	require.NoError(t, err)
	assert.Equal(t, TypeEpisode, got)

	_, err = ParseType("album")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	feed, err := Decode([]byte(sampleChart))

	require.NoError(t, err)
	assert.Equal(t, "tw", feed.Country)
	require.Len(t, feed.Results, 2)
	assert.Equal(t, "111", feed.Results[0].ID)
	assert.Equal(t, "Music", feed.Results[0].Genres[0].Name)
	assert.Equal(t, "Collection", feed.Results[1].CollectionName)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"feed":{"title":"x"}}`))
	assert.Equal(t, perrors.ErrCodeParseFeed, perrors.GetCode(err))

	_, err = Decode([]byte(`not json`))
	assert.Equal(t, perrors.ErrCodeParseFeed, perrors.GetCode(err))

	feed, err := Decode([]byte(`{"feed":{"results":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, feed.Results)
}

func TestClient_URL(t *testing.T) {
	c := NewClient()

	assert.Equal(t, "https://rss.applemarketingtools.com/api/v2/tw/podcasts/top/100/podcasts.json", c.URL("TW", TypePodcast))
	assert.Equal(t, "https://rss.applemarketingtools.com/api/v2/us/podcasts/top/100/podcast-episodes.json", c.URL("us", TypeEpisode))
}

func TestClient_Fetch(t *testing.T) {
	// Given: a chart server
	var path atomic.Value
	srv := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(sampleChart))
	})
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(noRetry()))

	// When: fetching the episode chart
	feed, err := c.Fetch(context.Background(), "tw", TypeEpisode)

	// Then: the feed is decoded from the episode path
	require.NoError(t, err)
	assert.Len(t, feed.Results, 2)
	assert.Equal(t, "/tw/podcast-episodes.json", path.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	// Given: a server that fails once and then succeeds
	var calls atomic.Int32
	srv := newChartServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleChart))
	})
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(perrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}))

	// When: fetching
	_, err := c.Fetch(context.Background(), "tw", TypePodcast)

	// Then: the second attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newChartServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	})
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(perrors.RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
	}))

	_, err := c.Fetch(context.Background(), "xx", TypePodcast)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BadBodyIsUnavailable(t *testing.T) {
	srv := newChartServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"feed":{}}`))
	})
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(noRetry()))

	_, err := c.Fetch(context.Background(), "tw", TypePodcast)

	assert.ErrorIs(t, err, ErrUnavailable)
	pe, ok := perrors.As(err)
	require.True(t, ok)
	assert.Equal(t, perrors.ErrCodeChartsUnavailable, pe.Code)
}

func TestClient_BreakerOpens(t *testing.T) {
	// Given: a failing server and a breaker that trips after two failures
	var calls atomic.Int32
	srv := newChartServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	cb := perrors.NewCircuitBreaker("charts-test", perrors.WithMaxFailures(2), perrors.WithResetTimeout(time.Hour))
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(noRetry()), WithBreaker(cb))

	// When: fetching three times
	for range 3 {
		_, err := c.Fetch(context.Background(), "tw", TypePodcast)
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	// Then: the third call never reached the server
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, perrors.StateOpen, c.Breaker().State())
}

func TestClient_CallerDeadlineDoesNotTripBreaker(t *testing.T) {
	// Given: a healthy but slow server and a breaker that trips after three failures
	srv := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(sampleChart))
	})
	cb := perrors.NewCircuitBreaker("charts-test", perrors.WithMaxFailures(3), perrors.WithResetTimeout(time.Minute))
	c := NewClient(WithURLTemplate(srv.URL+"/%s/%s.json"), WithRetry(noRetry()), WithBreaker(cb))

	// When: three callers give up before the server answers
	for range 3 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := c.Fetch(ctx, "tw", TypePodcast)
		cancel()
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	// Then: the breaker stays closed and a patient caller gets the chart
	assert.Equal(t, perrors.StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
	feed, err := c.Fetch(context.Background(), "tw", TypePodcast)
	require.NoError(t, err)
	assert.Len(t, feed.Results, 2)
}
