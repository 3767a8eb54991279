package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/podsearch/internal/charts"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/search"
)

func intPtr(v int) *int { return &v }

func TestDetectFormat(t *testing.T) {
	var buf bytes.Buffer

	// Given a writer that is not a terminal
	// Then JSON is selected whether or not it is forced
	assert.Equal(t, FormatJSON, DetectFormat(&buf, false))
	assert.Equal(t, FormatJSON, DetectFormat(&buf, true))
	assert.False(t, IsTTY(&buf))
	assert.False(t, IsTTY(nil))
}

func TestPrinter_Episodes(t *testing.T) {
	// Given an episode result with one highlighted and one plain hit
	env := response.Partial(response.SearchData[search.EpisodeItem]{
		Page:  1,
		Size:  20,
		Total: 42,
		Items: []search.EpisodeItem{
			{
				EpisodeID:   "ep-1",
				Title:       "Market Watch",
				PublishedAt: "2024-03-01T00:00:00Z",
				DurationSec: intPtr(3900),
				Show:        &search.ShowRef{Title: "Money Daily"},
				Highlights:  map[string][]string{"description": {"the <em>market</em> today"}},
			},
			{
				EpisodeID:   "ep-2",
				Title:       "Quiet Hours",
				Description: strings.Repeat("word ", 60),
			},
		},
	}, "embedding service unavailable; lexical results served")

	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	// When printed
	p.Episodes("market", env)
	out := buf.String()

	// Then the listing carries titles, metadata, snippets and the warning
	assert.Contains(t, out, `Episodes matching "market"`)
	assert.Contains(t, out, "showing 2 of 42 (page 1)")
	assert.Contains(t, out, "embedding service unavailable")
	assert.Contains(t, out, " 1. Market Watch")
	assert.Contains(t, out, "Money Daily · 2024-03-01T00:00:00Z · 1h05m · ep-1")
	assert.Contains(t, out, "the <em>market</em> today")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "\x1b[", "pipes are written without escape codes")
}

func TestPrinter_EmptyAndError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	// Given an empty show result
	p.Shows("nothing", response.OK(response.SearchData[search.ShowItem]{Page: 1, Size: 10}))
	assert.Contains(t, buf.String(), `No shows found for "nothing"`)

	// Given an error envelope
	buf.Reset()
	p.Shows("x", response.Fail[response.SearchData[search.ShowItem]]("ERR_302_INDEX_UNAVAILABLE", "index unavailable"))
	assert.Contains(t, buf.String(), "[ERR_302_INDEX_UNAVAILABLE] index unavailable")
}

func TestPrinter_Shows(t *testing.T) {
	env := response.OK(response.SearchData[search.ShowItem]{
		Page:  1,
		Size:  10,
		Total: 1,
		Items: []search.ShowItem{{ShowID: "show-1", Title: "Tech Talk", Publisher: "Acme", EpisodeCount: intPtr(120)}},
	})

	var buf bytes.Buffer
	NewPrinter(&buf, true).Shows("tech", env)

	assert.Contains(t, buf.String(), "Acme · 120 episodes · show-1")
}

func TestPrinter_Rankings(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	t.Run("chart", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, true).Rankings(&rankings.Result{
			Region:    "tw",
			Type:      charts.TypeEpisode,
			UpdatedAt: at,
			Served:    rankings.ServedCache,
			Items:     []rankings.Item{{Rank: 1, Title: "First", Publisher: "Pub"}, {Rank: 2, Title: "Second"}},
		})

		out := buf.String()
		assert.Contains(t, out, "Top episodes in TW")
		assert.Contains(t, out, "updated 2024-05-01 08:30 UTC (cache)")
		assert.Contains(t, out, "  1. First · Pub")
		assert.Contains(t, out, "  2. Second")
	})

	t.Run("unavailable", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, true).Rankings(&rankings.Result{Region: "us", Type: charts.TypePodcast, Served: rankings.ServedEmpty})

		assert.Contains(t, buf.String(), "Top podcasts in US")
		assert.Contains(t, buf.String(), "currently unavailable")
	})
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, true).JSON(map[string]int{"n": 1}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got["n"])
	assert.Contains(t, buf.String(), "\n  \"n\"")
}

func TestStyles_NoColorRendersPlain(t *testing.T) {
	s := GetStyles(true)
	assert.Equal(t, "title", s.Title.Render("title"))
}
