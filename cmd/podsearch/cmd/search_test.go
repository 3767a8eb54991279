package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
	"github.com/Aman-CERP/podsearch/internal/query"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/search"
)

// fakeSearcher records requests and returns canned envelopes.
type fakeSearcher struct {
	episodeReq search.EpisodeRequest
	showReq    search.ShowRequest
	err        error
}

func (f *fakeSearcher) SearchEpisodes(_ context.Context, req search.EpisodeRequest) (*search.EpisodeEnvelope, error) {
	f.episodeReq = req
	if f.err != nil {
		return nil, f.err
	}
	return response.OK(response.SearchData[search.EpisodeItem]{
		Page:  1,
		Size:  req.Size,
		Total: 1,
		Items: []search.EpisodeItem{{EpisodeID: "ep-1", Title: "Tea talk"}},
	}), nil
}

func (f *fakeSearcher) SearchShows(_ context.Context, req search.ShowRequest) (*search.ShowEnvelope, error) {
	f.showReq = req
	if f.err != nil {
		return nil, f.err
	}
	return response.OK(response.SearchData[search.ShowItem]{
		Page:  1,
		Size:  req.Size,
		Total: 1,
		Items: []search.ShowItem{{ShowID: "show-1", Title: "Tea Time"}},
	}), nil
}

func TestRunEpisodeSearch_PassesOptions(t *testing.T) {
	// Given: a searcher and explicit options
	s := &fakeSearcher{}
	opts := searchOptions{page: 2, size: 5, sort: "date", mode: "hybrid", languages: []string{"en", "zh-tw"}}
	var buf bytes.Buffer

	// When: searching into a buffer
	err := runEpisodeSearch(context.Background(), &buf, s, "tea", opts)

	// Then: the request carries every option and the output is the JSON envelope
	require.NoError(t, err)
	assert.Equal(t, "tea", s.episodeReq.Query)
	assert.Equal(t, 2, s.episodeReq.Page)
	assert.Equal(t, 5, s.episodeReq.Size)
	assert.Equal(t, query.SortDate, s.episodeReq.Sort)
	assert.Equal(t, search.ModeHybrid, s.episodeReq.Mode)
	assert.Equal(t, []string{"en", "zh-tw"}, s.episodeReq.Languages)

	var env search.EpisodeEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, response.StatusOK, env.Status)
	require.NotNil(t, env.Data)
	assert.Equal(t, "ep-1", env.Data.Items[0].EpisodeID)
}

func TestRunEpisodeSearch_InvalidMode(t *testing.T) {
	s := &fakeSearcher{}

	err := runEpisodeSearch(context.Background(), &bytes.Buffer{}, s, "tea", searchOptions{mode: "fuzzy"})

	assert.ErrorIs(t, err, perrors.ErrInvalidParameter)
	assert.Empty(t, s.episodeReq.Query, "searcher must not be called")
}

func TestRunEpisodeSearch_SearchError(t *testing.T) {
	s := &fakeSearcher{err: perrors.UnavailableError(perrors.ErrCodeIndexUnavailable, "index down", nil)}

	err := runEpisodeSearch(context.Background(), &bytes.Buffer{}, s, "tea", searchOptions{})

	assert.ErrorIs(t, err, perrors.ErrIndexUnavailable)
}

func TestRunShowSearch(t *testing.T) {
	s := &fakeSearcher{}
	var buf bytes.Buffer

	err := runShowSearch(context.Background(), &buf, s, "tea", searchOptions{page: 1, size: 3, languages: []string{"en"}})

	require.NoError(t, err)
	assert.Equal(t, search.ShowRequest{Query: "tea", Page: 1, Size: 3, Languages: []string{"en"}}, s.showReq)
	assert.Contains(t, buf.String(), `"show_id": "show-1"`)
}
