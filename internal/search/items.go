package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Aman-CERP/podsearch/internal/store"
)

// EpisodeItem is one episode in a search response.
type EpisodeItem struct {
	EpisodeID   string              `json:"episode_id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Highlights  map[string][]string `json:"highlights,omitempty"`
	PublishedAt string              `json:"published_at,omitempty"`
	DurationSec *int                `json:"duration_sec,omitempty"`
	ImageURL    string              `json:"image_url,omitempty"`
	Language    string              `json:"language,omitempty"`
	Audio       *Audio              `json:"audio,omitempty"`
	Show        *ShowRef            `json:"show,omitempty"`
}

// Audio describes an episode's enclosure.
type Audio struct {
	URL         string `json:"url,omitempty"`
	Type        string `json:"type,omitempty"`
	LengthBytes *int64 `json:"length_bytes,omitempty"`
}

// ShowRef is the parent show embedded in an episode.
type ShowRef struct {
	ShowID       string            `json:"show_id,omitempty"`
	Title        string            `json:"title,omitempty"`
	Publisher    string            `json:"publisher,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// ShowItem is one show in a search response.
type ShowItem struct {
	ShowID       string              `json:"show_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Language     string              `json:"language,omitempty"`
	Publisher    string              `json:"publisher,omitempty"`
	ImageURL     string              `json:"image_url,omitempty"`
	EpisodeCount *int                `json:"episode_count,omitempty"`
	Highlights   map[string][]string `json:"highlights,omitempty"`
	ExternalIDs  map[string]string   `json:"external_ids,omitempty"`
	ExternalURLs map[string]string   `json:"external_urls,omitempty"`
}

var (
	errNoSource     = errors.New("hit has no source")
	errMissingField = errors.New("missing required field")
)

// decodeSource unmarshals a hit's source into dst. Scalars are read
// leniently; a nested object of the wrong shape fails here.
func decodeSource(hit store.Hit, dst any) error {
	src := strings.TrimSpace(string(hit.Source))
	if src == "" || src == "null" {
		return errNoSource
	}
	if err := json.Unmarshal(hit.Source, dst); err != nil {
		return fmt.Errorf("decode source: %w", err)
	}
	return nil
}

// DecodeEpisode builds an EpisodeItem from a hit.
func DecodeEpisode(hit store.Hit) (EpisodeItem, error) {
	var src episodeSource
	if err := decodeSource(hit, &src); err != nil {
		return EpisodeItem{}, err
	}
	item := src.item()
	if item.EpisodeID == "" {
		item.EpisodeID = hit.ID
	}
	if item.EpisodeID == "" || item.Title == "" {
		return EpisodeItem{}, fmt.Errorf("%w: episode_id and title", errMissingField)
	}
	item.Description = plainText(item.Description)
	item.Highlights = hit.Highlight
	return item, nil
}

// DecodeShow builds a ShowItem from a hit.
func DecodeShow(hit store.Hit) (ShowItem, error) {
	var src showSource
	if err := decodeSource(hit, &src); err != nil {
		return ShowItem{}, err
	}
	item := src.item()
	if item.ShowID == "" {
		item.ShowID = hit.ID
	}
	if item.ShowID == "" || item.Title == "" {
		return ShowItem{}, fmt.Errorf("%w: show_id and title", errMissingField)
	}
	item.Description = plainText(item.Description)
	item.Highlights = hit.Highlight
	return item, nil
}

// plainText strips markup from feed descriptions, which often arrive as
// HTML. Text without tags is returned unchanged.
func plainText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
