package cmd

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/podsearch/internal/search"
	"github.com/Aman-CERP/podsearch/internal/server"
	"github.com/Aman-CERP/podsearch/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	page      int
	size      int
	sort      string
	mode      string
	languages []string
	json      bool
	noColor   bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search episodes or shows",
		Long: `Search the configured index from the command line.

Output is a readable listing on a terminal and the JSON envelope of the
HTTP API when piped or with --json.`,
	}

	cmd.AddCommand(newSearchEpisodesCmd(g))
	cmd.AddCommand(newSearchShowsCmd(g))

	return cmd
}

func newSearchEpisodesCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "episodes <query>",
		Short: "Search episodes",
		Example: `  podsearch search episodes "machine learning"
  podsearch search episodes interest rates --mode hybrid --lang en
  podsearch search episodes 新聞 --sort date --size 5 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				return runEpisodeSearch(cmd.Context(), cmd.OutOrStdout(), a.engine, strings.Join(args, " "), opts)
			})
		},
	}

	addSearchFlags(cmd, &opts, search.DefaultEpisodeSize)
	cmd.Flags().StringVar(&opts.sort, "sort", "relevance", "Sort order: relevance, date")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Search mode: lexical, vector, hybrid (default from config)")

	return cmd
}

func newSearchShowsCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:     "shows <query>",
		Short:   "Search shows",
		Example: `  podsearch search shows "true crime" --lang en`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				return runShowSearch(cmd.Context(), cmd.OutOrStdout(), a.engine, strings.Join(args, " "), opts)
			})
		},
	}

	addSearchFlags(cmd, &opts, search.DefaultShowSize)

	return cmd
}

func addSearchFlags(cmd *cobra.Command, opts *searchOptions, defSize int) {
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.size, "size", "n", defSize, "Results per page (max 100)")
	cmd.Flags().StringSliceVarP(&opts.languages, "lang", "l", nil, "Filter by language code (repeatable or comma separated)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output the JSON envelope")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
}

// withApp builds the service graph for one command and closes it after.
func withApp(ctx context.Context, g *globalOptions, fn func(a *app) error) error {
	a, err := newApp(ctx, g.cfg, g.logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func runEpisodeSearch(ctx context.Context, w io.Writer, s server.Searcher, q string, opts searchOptions) error {
	req, err := search.NewEpisodeRequest(q, opts.page, opts.size, opts.sort, opts.mode, opts.languages...)
	if err != nil {
		return err
	}

	start := time.Now()
	env, err := s.SearchEpisodes(ctx, req)
	if err != nil {
		return err
	}
	slog.Debug("cli_search_completed",
		slog.String("target", "episodes"),
		slog.Duration("duration", time.Since(start)))

	p := ui.NewPrinter(w, opts.noColor)
	if ui.DetectFormat(w, opts.json) == ui.FormatJSON {
		return p.JSON(env)
	}
	p.Episodes(q, env)
	return nil
}

func runShowSearch(ctx context.Context, w io.Writer, s server.Searcher, q string, opts searchOptions) error {
	env, err := s.SearchShows(ctx, search.ShowRequest{
		Query:     q,
		Page:      opts.page,
		Size:      opts.size,
		Languages: opts.languages,
	})
	if err != nil {
		return err
	}

	p := ui.NewPrinter(w, opts.noColor)
	if ui.DetectFormat(w, opts.json) == ui.FormatJSON {
		return p.JSON(env)
	}
	p.Shows(q, env)
	return nil
}
