package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/podsearch/internal/server"
	"github.com/Aman-CERP/podsearch/pkg/version"
)

type serveOptions struct {
	addr string
	warm bool
}

func newServeCmd(g *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Routes:
  GET /api/search/episodes   episode search (lexical, vector, hybrid)
  GET /api/search/shows      show search
  GET /api/search/stats      query pattern statistics
  GET /api/rankings          chart rankings
  GET /api/rankings/feed     chart rankings as RSS, Atom or JSON Feed
  GET /health                dependency health
  GET /metrics               Prometheus metrics`,
		Example: `  podsearch serve
  podsearch serve --addr :9000 --warm=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.warm, "warm", true, "Fetch every configured chart into the cache at startup")

	return cmd
}

func runServe(ctx context.Context, g *globalOptions, opts serveOptions) error {
	cfg := g.cfg
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	a, err := newApp(ctx, cfg, g.logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	serverOpts := []server.Option{
		server.WithLogger(g.logger.With(slog.String("component", "http"))),
		server.WithMetrics(a.metrics),
		server.WithQueryMetrics(a.queries),
		server.WithVersion(version.Short()),
	}
	for _, hc := range a.healthChecks() {
		serverOpts = append(serverOpts, server.WithHealthCheck(hc))
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}, a.engine, a.rankings, serverOpts...)
	if err != nil {
		return err
	}

	if opts.warm {
		go func() {
			n := a.rankings.Warm(ctx)
			g.logger.Info("rankings_warmed", slog.Int("charts", n))
		}()
	}

	return srv.Run(ctx)
}
