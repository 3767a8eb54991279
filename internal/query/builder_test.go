package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Lexical_Episodes(t *testing.T) {
	b := NewBuilder()

	q := b.Lexical(Params{
		Target:    TargetEpisodes,
		Text:      "history",
		From:      20,
		Size:      10,
		Languages: []string{"zh-tw"},
	})

	assert.Equal(t, KindLexical, q.Kind)
	assert.Equal(t, "history", q.Text)
	assert.Equal(t, 20, q.From)
	assert.Equal(t, 10, q.Size)
	assert.Equal(t, []string{"zh-tw"}, q.Languages)
	assert.Equal(t, SortRelevance, q.Sort)
	assert.Empty(t, q.DateField)
	require.NotEmpty(t, q.Fields)
	assert.Equal(t, "title", q.Fields[0].Name)
	assert.Contains(t, q.Highlight, "description")
}

func TestBuilder_Lexical_DateSortOnlyForEpisodes(t *testing.T) {
	b := NewBuilder()

	ep := b.Lexical(Params{Target: TargetEpisodes, Text: "x", Size: 5, Sort: SortDate})
	show := b.Lexical(Params{Target: TargetShows, Text: "x", Size: 5, Sort: SortDate})

	assert.Equal(t, "published_at", ep.DateField)
	assert.Empty(t, show.DateField)
	assert.Equal(t, "publisher", show.Fields[1].Name)
}

func TestBuilder_Vector(t *testing.T) {
	b := NewBuilder(WithVectorField("vec"), WithNumCandidates(50))
	vec := []float32{0.1, 0.2}

	q := b.Vector(Params{Target: TargetEpisodes, Size: 100}, vec)

	assert.Equal(t, KindVector, q.Kind)
	assert.Equal(t, "vec", q.VectorField)
	assert.Equal(t, 100, q.K)
	assert.Equal(t, 100, q.NumCandidates, "pool is at least k")
	assert.Equal(t, 0, q.From)
	assert.Equal(t, vec, q.Vector)
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortRelevance, s)

	s, err = ParseSort(" DATE ")
	require.NoError(t, err)
	assert.Equal(t, SortDate, s)

	_, err = ParseSort("popularity")
	assert.Error(t, err)
}
