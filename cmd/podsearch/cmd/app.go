package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aman-CERP/podsearch/internal/charts"
	"github.com/Aman-CERP/podsearch/internal/config"
	"github.com/Aman-CERP/podsearch/internal/embed"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
	"github.com/Aman-CERP/podsearch/internal/server"
	"github.com/Aman-CERP/podsearch/internal/store"
	"github.com/Aman-CERP/podsearch/internal/telemetry"
)

var errEmbeddingDown = errors.New("embedding service unavailable")

// app is the wired service graph shared by serve, mcp, search and rankings.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	queries  *telemetry.QueryMetrics
	backend  store.Backend
	gate     *embed.Gate
	engine   *search.Engine
	charts   *charts.Client
	rankings *rankings.Service
	closers  []func() error
}

// newApp builds every component from cfg. The caller must Close the app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		queries: telemetry.NewQueryMetrics(telemetry.DefaultQueryMetricsConfig()),
	}

	backend, err := a.openBackend()
	if err != nil {
		return nil, fmt.Errorf("index backend: %w", err)
	}
	a.backend = backend
	a.closers = append(a.closers, backend.Close)

	embedder, err := embed.NewEmbedder(ctx, embed.Options{
		Provider:   embed.ProviderType(cfg.Embedding.Provider),
		URL:        cfg.Embedding.URL,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
		CacheSize:  cfg.Embedding.CacheSize,
		Logger:     logger.With(slog.String("component", "embed")),
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if embedder != nil {
		a.closers = append(a.closers, embedder.Close)
	}
	a.gate = embed.NewGate(ctx, embedder)

	mode, err := search.ParseMode(cfg.Search.DefaultMode, search.ModeLexical)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.engine, err = search.NewEngine(backend, a.gate, search.EngineConfig{
		EpisodesIndex:   cfg.Index.EpisodesIndex,
		ShowsIndex:      cfg.Index.ShowsIndex,
		Window:          cfg.Search.Window,
		RRFConstant:     cfg.Search.RRFConstant,
		DefaultMode:     mode,
		FallbackWarning: cfg.Search.FallbackWarning,
	},
		search.WithLogger(logger.With(slog.String("component", "search"))),
		search.WithMetrics(a.metrics),
		search.WithQueryMetrics(a.queries),
		search.WithVectorField(cfg.Index.VectorField),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	retry := perrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.Rankings.MaxRetries
	a.charts = charts.NewClient(
		charts.WithURLTemplate(cfg.Rankings.ChartsURL),
		charts.WithHTTPClient(&http.Client{Timeout: cfg.Rankings.Timeout}),
		charts.WithBreaker(a.breaker("charts", cfg.Rankings.BreakerFailures, cfg.Rankings.BreakerReset)),
		charts.WithRetry(retry),
		charts.WithLogger(logger.With(slog.String("component", "charts"))),
	)

	a.rankings, err = rankings.NewService(a.charts, rankings.NewCache(cfg.Rankings.TTL),
		rankings.WithRegions(cfg.Rankings.Regions...),
		rankings.WithDefaultRegion(cfg.Rankings.DefaultRegion),
		rankings.WithServiceLogger(logger.With(slog.String("component", "rankings"))),
		rankings.WithServiceMetrics(a.metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info("app_ready",
		slog.String("backend", cfg.Index.Backend),
		slog.String("embedding", cfg.Embedding.Provider),
		slog.Bool("vector_search", a.gate.Available()),
		slog.String("default_mode", string(mode)))
	return a, nil
}

func (a *app) openBackend() (store.Backend, error) {
	idx := a.cfg.Index
	if idx.Backend == "local" {
		return store.OpenLocal(idx.LocalPath, a.cfg.Embedding.Dimensions, idx.EpisodesIndex, idx.ShowsIndex)
	}
	return store.NewElastic(store.ElasticConfig{
		URL:         idx.URL,
		Username:    idx.Username,
		Password:    idx.Password,
		APIKey:      idx.APIKey,
		Timeout:     idx.Timeout,
		VectorField: idx.VectorField,
	},
		store.WithBreaker(a.breaker("index", idx.BreakerFailures, idx.BreakerReset)),
		store.WithLogger(a.logger.With(slog.String("component", "index"))),
	)
}

// breaker creates a circuit breaker whose transitions are logged and
// exported as the circuit_state gauge.
func (a *app) breaker(name string, failures int, reset time.Duration) *perrors.CircuitBreaker {
	a.metrics.CircuitState(name, int(perrors.StateClosed))
	return perrors.NewCircuitBreaker(name,
		perrors.WithMaxFailures(failures),
		perrors.WithResetTimeout(reset),
		perrors.WithStateChange(func(name string, from, to perrors.State) {
			a.metrics.CircuitState(name, int(to))
			a.logger.Warn("circuit_state_changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		}),
	)
}

// healthChecks reports the index as critical; embeddings and charts only
// degrade the service.
func (a *app) healthChecks() []server.HealthCheck {
	return []server.HealthCheck{
		{Name: "index", Critical: true, Check: a.backend.Ping},
		{Name: "embedding", Check: func(ctx context.Context) error {
			if a.gate.Embedder() == nil {
				return nil
			}
			if !a.gate.Refresh(ctx) {
				return errEmbeddingDown
			}
			return nil
		}},
		{Name: "charts", Check: func(context.Context) error {
			if !a.charts.Breaker().Allow() {
				return perrors.ErrCircuitOpen
			}
			return nil
		}},
	}
}

// Close releases the components in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
