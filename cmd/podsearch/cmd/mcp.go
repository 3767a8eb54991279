package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/podsearch/internal/mcp"
)

func newMCPCmd(g *globalOptions) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve search and rankings over the Model Context Protocol",
		Long: `Serve search and rankings to AI assistants over the Model Context Protocol.

Tools: search_episodes, search_shows, get_rankings, search_status.
Resource: podsearch://query_metrics.

stdout carries JSON-RPC exclusively; logs go to stderr or the configured
log file.`,
		Example: `  podsearch mcp
  podsearch mcp --config /etc/podsearch.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx, g, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runMCP(ctx context.Context, g *globalOptions, transport string) error {
	a, err := newApp(ctx, g.cfg, g.logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := mcp.NewServer(a.engine, a.rankings,
		mcp.WithLogger(g.logger.With(slog.String("component", "mcp"))),
		mcp.WithGate(a.gate),
		mcp.WithQueryMetrics(a.queries),
	)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, transport)
}
