package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
)

// maxSnippet bounds descriptions in markdown output.
const maxSnippet = 280

// FormatEpisodes renders episode search results as markdown.
func FormatEpisodes(query string, out EpisodesOutput) string {
	if len(out.Items) == 0 {
		return fmt.Sprintf("No episodes found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Episodes matching \"%s\"\n\n", query)
	writeSummary(&sb, len(out.Items), out.Total, out.Page, out.Mode, out.Warning)

	for i, ep := range out.Items {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, ep.Title)
		if ep.Show != nil && ep.Show.Title != "" {
			fmt.Fprintf(&sb, "**Show:** %s", ep.Show.Title)
			if ep.Show.Publisher != "" {
				fmt.Fprintf(&sb, " (%s)", ep.Show.Publisher)
			}
			sb.WriteString("  \n")
		}
		if ep.PublishedAt != "" {
			fmt.Fprintf(&sb, "**Published:** %s  \n", ep.PublishedAt)
		}
		if ep.DurationSec != nil {
			fmt.Fprintf(&sb, "**Duration:** %s  \n", formatDuration(*ep.DurationSec))
		}
		fmt.Fprintf(&sb, "**ID:** `%s`\n\n", ep.EpisodeID)
		writeSnippet(&sb, ep.Highlights, ep.Description)
	}
	return sb.String()
}

// FormatShows renders show search results as markdown.
func FormatShows(query string, out ShowsOutput) string {
	if len(out.Items) == 0 {
		return fmt.Sprintf("No shows found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Shows matching \"%s\"\n\n", query)
	writeSummary(&sb, len(out.Items), out.Total, out.Page, "", out.Warning)

	for i, show := range out.Items {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, show.Title)
		if show.Publisher != "" {
			fmt.Fprintf(&sb, "**Publisher:** %s  \n", show.Publisher)
		}
		if show.EpisodeCount != nil {
			fmt.Fprintf(&sb, "**Episodes:** %d  \n", *show.EpisodeCount)
		}
		fmt.Fprintf(&sb, "**ID:** `%s`\n\n", show.ShowID)
		writeSnippet(&sb, show.Highlights, show.Description)
	}
	return sb.String()
}

// FormatRankings renders a chart as a numbered markdown list.
func FormatRankings(out RankingsOutput) string {
	title := fmt.Sprintf("## Top %s in %s", chartNoun(out.Type), strings.ToUpper(out.Region))
	if len(out.Items) == 0 {
		return title + "\n\nThe chart is currently unavailable."
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Updated %s\n\n", out.UpdatedAt)
	for _, item := range out.Items {
		fmt.Fprintf(&sb, "%d. **%s**", item.Rank, item.Title)
		if item.Publisher != "" {
			fmt.Fprintf(&sb, " by %s", item.Publisher)
		}
		if item.ShowID != "" {
			fmt.Fprintf(&sb, " `%s`", item.ShowID)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeSummary(sb *strings.Builder, n int, total int64, page int, mode, warning string) {
	fmt.Fprintf(sb, "Showing %d of %d result", n, total)
	if total != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(sb, " (page %d", page)
	if mode != "" {
		fmt.Fprintf(sb, ", %s", mode)
	}
	sb.WriteString(")\n\n")
	if warning != "" {
		fmt.Fprintf(sb, "> **Warning:** %s\n\n", warning)
	}
}

// writeSnippet prefers highlight fragments over the description.
func writeSnippet(sb *strings.Builder, highlights map[string][]string, description string) {
	for _, field := range []string{"title", "description"} {
		if frags := highlights[field]; len(frags) > 0 {
			fmt.Fprintf(sb, "> %s\n\n", strings.Join(frags, " … "))
			return
		}
	}
	if description != "" {
		fmt.Fprintf(sb, "%s\n\n", truncate(description, maxSnippet))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func formatDuration(sec int) string {
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func chartNoun(t string) string {
	if t == "episode" {
		return "Episodes"
	}
	return "Podcasts"
}

func episodeItems(items []search.EpisodeItem) []search.EpisodeItem {
	if items == nil {
		return []search.EpisodeItem{}
	}
	return items
}

func showItems(items []search.ShowItem) []search.ShowItem {
	if items == nil {
		return []search.ShowItem{}
	}
	return items
}

func rankingItems(items []rankings.Item) []rankings.Item {
	if items == nil {
		return []rankings.Item{}
	}
	return items
}
