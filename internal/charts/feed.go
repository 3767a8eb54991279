// Package charts fetches top-podcast and top-episode charts from the Apple
// marketing tools RSS API.
package charts

import (
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

// Type is a chart kind.
type Type string

const (
	TypePodcast Type = "podcast"
	TypeEpisode Type = "episode"
)

// ParseType accepts podcast or episode. An empty string selects podcast.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypePodcast:
		return TypePodcast, nil
	case TypeEpisode:
		return TypeEpisode, nil
	default:
		return "", fmt.Errorf("unknown ranking type %q: want podcast or episode", s)
	}
}

// feedName is the path segment the API uses for t.
func (t Type) feedName() string {
	if t == TypeEpisode {
		return "podcast-episodes"
	}
	return "podcasts"
}

// Feed is a decoded chart.
type Feed struct {
	Title   string  `json:"title"`
	Country string  `json:"country"`
	Updated string  `json:"updated"`
	Results []Entry `json:"results"`
}

// Entry is one chart position. Episode entries carry the parent show in
// CollectionName.
type Entry struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ArtistName     string  `json:"artistName"`
	CollectionName string  `json:"collectionName"`
	ArtworkURL100  string  `json:"artworkUrl100"`
	URL            string  `json:"url"`
	ReleaseDate    string  `json:"releaseDate"`
	Genres         []Genre `json:"genres"`
}

// Genre is a chart genre tag.
type Genre struct {
	GenreID string `json:"genreId"`
	Name    string `json:"name"`
}

// Decode parses an API response body. A body without a feed.results array
// is a parse error.
func Decode(body []byte) (*Feed, error) {
	var envelope struct {
		Feed *struct {
			Feed
			Results *[]Entry `json:"results"`
		} `json:"feed"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, perrors.ParseError(perrors.ErrCodeParseFeed, "chart response is not valid JSON", err)
	}
	if envelope.Feed == nil || envelope.Feed.Results == nil {
		return nil, perrors.ParseError(perrors.ErrCodeParseFeed, "chart response has no feed.results", nil)
	}
	feed := envelope.Feed.Feed
	feed.Results = *envelope.Feed.Results
	return &feed, nil
}
