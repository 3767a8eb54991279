package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/podsearch/internal/config"
	"github.com/Aman-CERP/podsearch/internal/embed"
	"github.com/Aman-CERP/podsearch/internal/store"
	"github.com/Aman-CERP/podsearch/internal/ui"
)

type indexOptions struct {
	path      string
	episodes  string
	shows     string
	batchSize int
	embed     bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load shows and episodes into the local index",
		Long: `Load newline-delimited JSON documents into the local index backend.

Each line is one show (keyed by show_id) or episode (keyed by episode_id)
in the same shape the search API returns. An "embedding" array, when
present, is indexed for vector search; with --embed, documents without
one are embedded from their title and description using the configured
provider.

The two files load concurrently. Re-indexing a document replaces it.`,
		Example: `  podsearch index --path ./data --shows shows.jsonl --episodes episodes.jsonl
  podsearch index --episodes episodes.jsonl --embed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd.OutOrStdout(), g.cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.path, "path", "", "Index directory (default index.local_path)")
	cmd.Flags().StringVar(&opts.episodes, "episodes", "", "Episodes JSONL file")
	cmd.Flags().StringVar(&opts.shows, "shows", "", "Shows JSONL file")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 500, "Documents per index batch")
	cmd.Flags().BoolVar(&opts.embed, "embed", false, "Embed documents that carry no vector")

	return cmd
}

func runIndex(ctx context.Context, w io.Writer, cfg *config.Config, opts indexOptions) error {
	path := opts.path
	if path == "" {
		path = cfg.Index.LocalPath
	}
	if path == "" {
		return fmt.Errorf("no index directory: set --path or index.local_path")
	}
	if opts.episodes == "" && opts.shows == "" {
		return fmt.Errorf("nothing to index: set --episodes and/or --shows")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	var loadOpts []store.LoadOption
	if opts.embed {
		embedder, err := embed.NewEmbedder(ctx, embed.Options{
			Provider:   embed.ProviderType(cfg.Embedding.Provider),
			URL:        cfg.Embedding.URL,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
			CacheSize:  cfg.Embedding.CacheSize,
		})
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		if embedder == nil {
			return fmt.Errorf("--embed needs an embedding provider, got %q", cfg.Embedding.Provider)
		}
		defer func() { _ = embedder.Close() }()
		loadOpts = append(loadOpts, store.WithEmbedding(embedder.Embed))
	}

	local, err := store.OpenLocal(path, cfg.Embedding.Dimensions, cfg.Index.EpisodesIndex, cfg.Index.ShowsIndex)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()

	p := ui.NewPrinter(w, false)
	start := time.Now()

	jobs := []struct{ index, file, idField string }{
		{cfg.Index.ShowsIndex, opts.shows, "show_id"},
		{cfg.Index.EpisodesIndex, opts.episodes, "episode_id"},
	}
	counts := make([]int, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		if job.file == "" {
			continue
		}
		g.Go(func() error {
			f, err := os.Open(job.file)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			n, err := local.LoadJSONL(gctx, job.index, f, job.idField, opts.batchSize, loadOpts...)
			counts[i] = n
			if err != nil {
				return err
			}
			slog.Info("index_loaded", slog.String("index", job.index), slog.Int("documents", n))
			return nil
		})
	}
	loadErr := g.Wait()

	// Whatever loaded before a failure is still worth keeping.
	if err := local.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	if loadErr != nil {
		return loadErr
	}

	for i, job := range jobs {
		if job.file != "" {
			p.Successf("%s: %d documents from %s", job.index, counts[i], job.file)
		}
	}

	stats, err := local.Stats()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := stats[name]
		p.Status("", fmt.Sprintf("%s: %d documents, %d vectors", name, s.Documents, s.Vectors))
	}
	p.Status("", fmt.Sprintf("done in %s, index at %s", time.Since(start).Round(time.Millisecond), path))
	return nil
}
