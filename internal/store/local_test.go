package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/podsearch/internal/query"
)

const episodesJSONL = `{"episode_id":"ep-1","title":"The history of tea","description":"A long look at tea in Taiwan","language":"zh-TW","published_at":"2024-01-02T00:00:00Z","embedding":[1,0,0]}
{"episode_id":"ep-2","title":"Coffee culture","description":"Espresso and history","language":"en","published_at":"2024-03-01T00:00:00Z","embedding":[0,1,0]}

{"episode_id":"ep-3","title":"Tea ceremonies","description":"Rituals","language":"en","published_at":"2023-06-01T00:00:00Z","embedding":[0.9,0.1,0]}
`

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := OpenLocal("", 3, "episodes", "shows")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	n, err := l.LoadJSONL(context.Background(), "episodes", strings.NewReader(episodesJSONL), "episode_id", 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return l
}

func TestLocal_LexicalSearch(t *testing.T) {
	// Given: a local backend with three episodes
	l := newLocal(t)
	b := query.NewBuilder()

	// When: searching for "tea"
	res, err := l.Search(context.Background(), "episodes", b.Lexical(query.Params{
		Target: query.TargetEpisodes, Text: "tea", Size: 10,
	}))

	// Then: both tea episodes come back with a total and sources without vectors
	require.NoError(t, err)
	require.NotNil(t, res.Total)
	assert.Equal(t, int64(2), *res.Total)
	require.Len(t, res.Hits, 2)
	ids := []string{res.Hits[0].ID, res.Hits[1].ID}
	assert.ElementsMatch(t, []string{"ep-1", "ep-3"}, ids)
	assert.Equal(t, 0, res.Hits[0].Rank)

	var src map[string]any
	require.NoError(t, json.Unmarshal(res.Hits[0].Source, &src))
	assert.NotContains(t, src, "embedding")
	assert.Contains(t, src, "title")
}

func TestLocal_LexicalLanguageFilter(t *testing.T) {
	l := newLocal(t)
	q := query.NewBuilder().Lexical(query.Params{
		Target: query.TargetEpisodes, Text: "tea", Size: 10, Languages: []string{"zh-tw"},
	})

	res, err := l.Search(context.Background(), "episodes", q)

	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "ep-1", res.Hits[0].ID)
}

func TestLocal_LexicalHighlights(t *testing.T) {
	l := newLocal(t)
	q := query.NewBuilder().Lexical(query.Params{Target: query.TargetEpisodes, Text: "coffee", Size: 5})

	res, err := l.Search(context.Background(), "episodes", q)

	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.Contains(t, res.Hits[0].Highlight, "title")
	assert.Contains(t, res.Hits[0].Highlight["title"][0], "<mark>")
}

func TestLocal_VectorSearch(t *testing.T) {
	l := newLocal(t)
	q := query.NewBuilder().Vector(query.Params{Target: query.TargetEpisodes, Size: 2}, []float32{1, 0, 0})

	res, err := l.Search(context.Background(), "episodes", q)

	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "ep-1", res.Hits[0].ID)
	assert.Equal(t, "ep-3", res.Hits[1].ID)
	assert.Equal(t, 1, res.Hits[1].Rank)
	assert.Equal(t, int64(2), *res.Total)
}

func TestLocal_VectorLanguageFilter(t *testing.T) {
	l := newLocal(t)
	q := query.NewBuilder().Vector(query.Params{
		Target: query.TargetEpisodes, Size: 3, Languages: []string{"en"},
	}, []float32{1, 0, 0})

	res, err := l.Search(context.Background(), "episodes", q)

	require.NoError(t, err)
	for _, h := range res.Hits {
		assert.NotEqual(t, "ep-1", h.ID)
	}
}

func TestLocal_LanguageFilterIgnoresStoredCase(t *testing.T) {
	// Given: ep-1 stored with language "zh-TW"
	l := newLocal(t)
	b := query.NewBuilder()
	params := query.Params{Target: query.TargetEpisodes, Text: "tea", Size: 3, Languages: []string{"zh-tw"}}

	// When: filtering by the lowercased code in both modes
	lex, err := l.Search(context.Background(), "episodes", b.Lexical(params))
	require.NoError(t, err)
	vec, err := l.Search(context.Background(), "episodes", b.Vector(params, []float32{1, 0, 0}))
	require.NoError(t, err)

	// Then: both find it
	require.Len(t, lex.Hits, 1)
	assert.Equal(t, "ep-1", lex.Hits[0].ID)
	require.Len(t, vec.Hits, 1)
	assert.Equal(t, "ep-1", vec.Hits[0].ID)
}

func TestLocal_UnknownIndex(t *testing.T) {
	l := newLocal(t)
	_, err := l.Search(context.Background(), "movies", &query.Query{Kind: query.KindLexical, Text: "x", Size: 1})
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestLocal_DimensionMismatch(t *testing.T) {
	l := newLocal(t)
	err := l.Add(context.Background(), "episodes", []Document{{ID: "x", Source: json.RawMessage(`{}`), Vector: []float32{1}}})

	var dm ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
}

func TestLocal_SaveAndReopen(t *testing.T) {
	// Given: an on-disk backend with data
	dir := t.TempDir()
	l, err := OpenLocal(dir, 3, "episodes")
	require.NoError(t, err)
	_, err = l.LoadJSONL(context.Background(), "episodes", strings.NewReader(episodesJSONL), "episode_id", 10)
	require.NoError(t, err)
	require.NoError(t, l.Save())
	require.NoError(t, l.Close())

	// When: reopening it
	l2, err := OpenLocal(dir, 3, "episodes")
	require.NoError(t, err)
	defer func() { _ = l2.Close() }()

	// Then: both indexes still answer
	stats, err := l2.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats["episodes"].Documents)
	assert.Equal(t, 3, stats["episodes"].Vectors)

	res, err := l2.Search(context.Background(), "episodes",
		query.NewBuilder().Vector(query.Params{Target: query.TargetEpisodes, Size: 1}, []float32{0, 1, 0}))
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "ep-2", res.Hits[0].ID)
}

func TestLocal_ClosedBackend(t *testing.T) {
	l, err := OpenLocal("", 3, "episodes")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Ping(context.Background()), ErrClosed)
	_, err = l.Search(context.Background(), "episodes", &query.Query{Kind: query.KindLexical})
	assert.ErrorIs(t, err, ErrClosed)
}
