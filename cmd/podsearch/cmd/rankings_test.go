package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/podsearch/internal/charts"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/rankings"
)

type fakeRankings struct {
	calls int
	req   rankings.Request
}

func (f *fakeRankings) Get(_ context.Context, req rankings.Request) (*rankings.Result, error) {
	f.calls++
	f.req = req
	return &rankings.Result{
		Region:    "us",
		Type:      charts.TypeEpisode,
		UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Served:    rankings.ServedFetch,
		Items: []rankings.Item{
			{Rank: 1, ShowID: "episode:apple:1", Title: "First", Publisher: "Pub"},
		},
	}, nil
}

func chartURL(region string, t charts.Type) string {
	return "https://charts.example/" + region + "/" + string(t)
}

func TestRunRankings_JSON(t *testing.T) {
	// Given: a rankings source
	r := &fakeRankings{}
	var buf bytes.Buffer

	// When: rankings print into a buffer
	err := runRankings(context.Background(), &buf, r, chartURL, rankingsOptions{country: "US", kind: "episode", limit: 10})

	// Then: the request is passed through and the envelope is written
	require.NoError(t, err)
	assert.Equal(t, rankings.Request{Country: "US", Type: "episode", Limit: 10}, r.req)

	var env rankings.RankingsEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	require.NotNil(t, env.Data)
	assert.Equal(t, "us", env.Data.Region)
	assert.Equal(t, "First", env.Data.Items[0].Title)
}

func TestRunRankings_Feed(t *testing.T) {
	r := &fakeRankings{}
	var buf bytes.Buffer

	err := runRankings(context.Background(), &buf, r, chartURL, rankingsOptions{feed: "atom"})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "<feed")
	assert.Contains(t, out, "#1 First")
	assert.Contains(t, out, "https://charts.example/us/episode")
}

func TestRunRankings_BadFeedFormat(t *testing.T) {
	r := &fakeRankings{}

	err := runRankings(context.Background(), &bytes.Buffer{}, r, nil, rankingsOptions{feed: "yaml"})

	assert.ErrorIs(t, err, perrors.ErrInvalidParameter)
	assert.Zero(t, r.calls, "the chart is not requested for a bad format")
}
