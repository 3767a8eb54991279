package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"show_id":"s1","title":"Daily","language":"en","embedding":[0.5,0.5]}`), "show_id")

	require.NoError(t, err)
	assert.Equal(t, "s1", doc.ID)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, []float32{0.5, 0.5}, doc.Vector)
	assert.JSONEq(t, `{"show_id":"s1","title":"Daily","language":"en"}`, string(doc.Source))
}

func TestParseDocument_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":      `{`,
		"missing id":    `{"title":"x"}`,
		"numeric id":    `{"show_id":7}`,
		"empty id":      `{"show_id":""}`,
		"bad embedding": `{"show_id":"s","embedding":"nope"}`,
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument([]byte(line), "show_id")
			assert.Error(t, err)
		})
	}
}

func TestLoadJSONL_ReportsLine(t *testing.T) {
	l, err := OpenLocal("", 2, "shows")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	input := `{"show_id":"a","title":"A"}` + "\n" + `{"title":"no id"}` + "\n"
	n, err := l.LoadJSONL(context.Background(), "shows", strings.NewReader(input), "show_id", 10)

	assert.ErrorContains(t, err, "line 2")
	assert.Equal(t, 0, n)
}

func TestLoadJSONL_EmbedsMissingVectors(t *testing.T) {
	l, err := OpenLocal("", 2, "shows")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	// Given one show with a vector and two without
	input := `{"show_id":"a","title":"A","embedding":[1,0]}` + "\n" +
		`{"show_id":"b","title":"Bee","description":"Keeping"}` + "\n" +
		`{"show_id":"c","title":"Sea"}` + "\n"

	var (
		mu    sync.Mutex
		texts []string
	)
	embed := func(_ context.Context, text string) ([]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, text)
		return []float32{float32(len(text)), 1}, nil
	}

	// When loaded with an embedder
	n, err := l.LoadJSONL(context.Background(), "shows", strings.NewReader(input), "show_id", 2,
		WithEmbedding(embed), WithEmbedConcurrency(2))

	// Then only the documents without vectors were embedded
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{"Bee\n\nKeeping", "Sea"}, texts)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats["shows"].Vectors)
}

func TestLoadJSONL_EmbeddingFailureStopsLoad(t *testing.T) {
	l, err := OpenLocal("", 2, "shows")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	failing := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("model offline")
	}
	_, err = l.LoadJSONL(context.Background(), "shows",
		strings.NewReader(`{"show_id":"a","title":"A"}`+"\n"), "show_id", 10, WithEmbedding(failing))

	assert.ErrorContains(t, err, "model offline")
}
