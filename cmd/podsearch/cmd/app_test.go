package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/podsearch/internal/config"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

func checkResults(t *testing.T, a *app) map[string]error {
	t.Helper()
	out := make(map[string]error)
	for _, hc := range a.healthChecks() {
		out[hc.Name] = hc.Check(context.Background())
	}
	return out
}

func TestNewApp_ElasticHealth(t *testing.T) {
	// Given: a cluster that answers its root endpoint
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cluster_name":"test"}`))
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Index.URL = srv.URL
	cfg.Embedding.Provider = "none"

	// When: the app is built
	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	// Then: vector search is off and every check passes
	assert.False(t, a.gate.Available())
	for name, err := range checkResults(t, a) {
		assert.NoError(t, err, name)
	}
}

func TestNewApp_IndexDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Index.URL = srv.URL
	cfg.Embedding.Provider = "none"

	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	results := checkResults(t, a)
	assert.Error(t, results["index"])
	assert.NoError(t, results["charts"])

	for _, hc := range a.healthChecks() {
		assert.Equal(t, hc.Name == "index", hc.Critical, hc.Name)
	}
}

func TestNewApp_RejectsBadIndexURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Index.URL = "not a url"

	_, err := newApp(context.Background(), cfg, nil)

	assert.ErrorContains(t, err, "index backend")
}

func TestApp_BreakerExportsState(t *testing.T) {
	cfg := localConfig("")
	a, err := newApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	// Given: a breaker that opens after one failure
	cb := a.breaker("probe", 1, time.Minute)

	// When: a call fails
	_ = cb.Execute(func() error { return errors.New("boom") })

	// Then: the gauge reports the open state
	require.Equal(t, perrors.StateOpen, cb.State())
	families, err := a.metrics.Registry().Gather()
	require.NoError(t, err)

	var got float64 = -1
	for _, mf := range families {
		if mf.GetName() != "podsearch_circuit_state" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "name" && l.GetValue() == "probe" {
					got = m.GetGauge().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(perrors.StateOpen), got)
}

func TestApp_EmbeddingHealthFollowsGate(t *testing.T) {
	a, err := newApp(context.Background(), localConfig(""), nil)
	require.NoError(t, err)

	// Given: a static embedder, available until closed
	assert.NoError(t, checkResults(t, a)["embedding"])

	// When: the app is closed the embedder stops
	require.NoError(t, a.Close())

	// Then: the embedding check fails
	assert.ErrorIs(t, checkResults(t, a)["embedding"], errEmbeddingDown)
}
