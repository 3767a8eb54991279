package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/podsearch/internal/charts"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/server"
	"github.com/Aman-CERP/podsearch/internal/ui"
)

type rankingsOptions struct {
	country string
	kind    string
	limit   int
	feed    string
	json    bool
	noColor bool
}

func newRankingsCmd(g *globalOptions) *cobra.Command {
	var opts rankingsOptions

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Show the top podcast or episode chart",
		Long: `Show the top podcast or episode chart for a region.

The chart is fetched from Apple's marketing tools API. --feed renders it as
an RSS, Atom or JSON Feed document instead of a listing.`,
		Example: `  podsearch rankings
  podsearch rankings --country us --type episode --limit 10
  podsearch rankings --feed atom > top.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				return runRankings(cmd.Context(), cmd.OutOrStdout(), a.rankings, a.charts.URL, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.country, "country", "", "Region code (default from config)")
	cmd.Flags().StringVarP(&opts.kind, "type", "t", "podcast", "Chart type: podcast, episode")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", rankings.DefaultLimit, "Number of entries (max 100)")
	cmd.Flags().StringVar(&opts.feed, "feed", "", "Render as a feed: rss, atom, json")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output the JSON envelope")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// runRankings prints one chart. chartURL, when set, links a rendered feed
// back to its source chart.
func runRankings(ctx context.Context, w io.Writer, r server.Rankings, chartURL func(string, charts.Type) string, opts rankingsOptions) error {
	format := ""
	if opts.feed != "" {
		f, err := rankings.ParseFormat(opts.feed)
		if err != nil {
			return err
		}
		format = f
	}

	res, err := r.Get(ctx, rankings.Request{
		Country: opts.country,
		Type:    opts.kind,
		Limit:   opts.limit,
	})
	if err != nil {
		return err
	}

	if format != "" {
		self := ""
		if chartURL != nil {
			self = chartURL(res.Region, res.Type)
		}
		body, _, err := rankings.Render(rankings.BuildFeed(res, self), format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, body)
		return err
	}

	p := ui.NewPrinter(w, opts.noColor)
	if ui.DetectFormat(w, opts.json) == ui.FormatJSON {
		return p.JSON(res.Envelope())
	}
	p.Rankings(res)
	return nil
}
