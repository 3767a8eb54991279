// Package server exposes search and rankings over HTTP with echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
	"github.com/Aman-CERP/podsearch/internal/telemetry"
)

// Searcher runs episode and show searches.
type Searcher interface {
	SearchEpisodes(ctx context.Context, req search.EpisodeRequest) (*search.EpisodeEnvelope, error)
	SearchShows(ctx context.Context, req search.ShowRequest) (*search.ShowEnvelope, error)
}

// Rankings serves chart rankings.
type Rankings interface {
	Get(ctx context.Context, req rankings.Request) (*rankings.Result, error)
}

// Config configures the HTTP listener.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	CORSOrigins []string
}

// HealthCheck probes one dependency. A failing critical check turns the
// health endpoint unhealthy; others only mark it degraded.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Server is the podsearch HTTP API.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	search   Searcher
	rankings Rankings
	checks   []HealthCheck
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	queries  *telemetry.QueryMetrics
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves m on /metrics and records HTTP request metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithQueryMetrics serves the query statistics on /api/search/stats.
func WithQueryMetrics(q *telemetry.QueryMetrics) Option {
	return func(s *Server) { s.queries = q }
}

// WithHealthCheck adds a dependency probe to /health.
func WithHealthCheck(hc HealthCheck) Option {
	return func(s *Server) {
		if hc.Check != nil {
			s.checks = append(s.checks, hc)
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New builds the server and registers its routes.
func New(cfg Config, searcher Searcher, ranks Rankings, opts ...Option) (*Server, error) {
	if searcher == nil || ranks == nil {
		return nil, fmt.Errorf("server: searcher and rankings are required")
	}
	s := &Server{
		cfg:      cfg,
		search:   searcher,
		rankings: ranks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
		}))
	}

	e.GET("/health", s.health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := e.Group("/api")
	if cfg.RateLimit > 0 {
		api.Use(s.rateLimiter())
	}
	api.GET("/search/episodes", s.searchEpisodes)
	api.GET("/search/shows", s.searchShows)
	api.GET("/search/stats", s.searchStats)
	api.GET("/rankings", s.getRankings)
	api.GET("/rankings/feed", s.rankingsFeed)

	s.echo = e
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.StartServer(srv)
	}()
	s.logger.Info("server_started", slog.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("server_stopping")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) rateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.cfg.RateLimit),
		Burst:     s.cfg.RateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	cfg := middleware.DefaultRateLimiterConfig
	cfg.Store = store
	cfg.DenyHandler = func(c echo.Context, identifier string, err error) error {
		s.logger.Warn("rate_limited", slog.String("client", identifier))
		return errRateLimited
	}
	return middleware.RateLimiterWithConfig(cfg)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := v.RoutePath
			if route == "" {
				route = "unmatched"
			}
			s.metrics.ObserveHTTP(v.Method, route, v.Status, v.Latency)

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			s.logger.LogAttrs(c.Request().Context(), level, "http_request", attrs...)
			return nil
		},
	})
}
