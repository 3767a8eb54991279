package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/search"
)

func intPtr(v int) *int { return &v }

func TestFormatEpisodes(t *testing.T) {
	out := EpisodesOutput{
		Status:  "partial_success",
		Warning: "1 item(s) skipped due to parse errors",
		Mode:    "hybrid",
		Page:    1,
		Total:   2,
		Items: []search.EpisodeItem{
			{
				EpisodeID:   "e1",
				Title:       "AI Weekly",
				PublishedAt: "2024-05-01T08:00:00Z",
				DurationSec: intPtr(3725),
				Show:        &search.ShowRef{Title: "Tech Talk", Publisher: "Studio"},
				Highlights:  map[string][]string{"description": {"all about <em>AI</em>"}},
			},
			{EpisodeID: "e2", Title: "Plain", Description: strings.Repeat("x", 400)},
		},
	}

	md := FormatEpisodes("ai", out)

	assert.Contains(t, md, `## Episodes matching "ai"`)
	assert.Contains(t, md, "Showing 2 of 2 results (page 1, hybrid)")
	assert.Contains(t, md, "> **Warning:** 1 item(s) skipped due to parse errors")
	assert.Contains(t, md, "### 1. AI Weekly")
	assert.Contains(t, md, "**Show:** Tech Talk (Studio)")
	assert.Contains(t, md, "**Duration:** 1:02:05")
	assert.Contains(t, md, "> all about <em>AI</em>")
	assert.Contains(t, md, strings.Repeat("x", maxSnippet)+"…")
	assert.NotContains(t, md, strings.Repeat("x", maxSnippet+1))
}

func TestFormatEpisodes_Empty(t *testing.T) {
	assert.Equal(t, `No episodes found for "zzz"`, FormatEpisodes("zzz", EpisodesOutput{}))
}

func TestFormatShows(t *testing.T) {
	md := FormatShows("daily", ShowsOutput{
		Page:  1,
		Total: 1,
		Items: []search.ShowItem{{ShowID: "s1", Title: "The Daily", Publisher: "NYT", EpisodeCount: intPtr(2000)}},
	})

	assert.Contains(t, md, "Showing 1 of 1 result (page 1)")
	assert.Contains(t, md, "**Publisher:** NYT")
	assert.Contains(t, md, "**Episodes:** 2000")
	assert.Contains(t, md, "**ID:** `s1`")
	assert.Equal(t, `No shows found for "x"`, FormatShows("x", ShowsOutput{}))
}

func TestFormatRankings(t *testing.T) {
	out := RankingsOutput{
		Region:    "tw",
		Type:      "episode",
		UpdatedAt: "2024-05-01T00:00:00Z",
		Items: []rankings.Item{
			{Rank: 1, Title: "First", Publisher: "Pub", ShowID: "episode:apple:1"},
			{Rank: 2, Title: "Second"},
		},
	}

	md := FormatRankings(out)

	assert.Contains(t, md, "## Top Episodes in TW")
	assert.Contains(t, md, "1. **First** by Pub `episode:apple:1`\n")
	assert.Contains(t, md, "2. **Second**\n")

	out.Items = nil
	assert.Contains(t, FormatRankings(out), "currently unavailable")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:59", formatDuration(59))
	assert.Equal(t, "10:00", formatDuration(600))
	assert.Equal(t, "2:00:01", formatDuration(7201))
}
