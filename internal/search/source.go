package search

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Indexed documents come from many feeds and their scalar fields are not
// reliably typed. The source types below read scalars leniently; only a
// nested object of the wrong shape fails the decode.

// looseString accepts any JSON scalar and keeps its text. Objects, arrays
// and null read as empty.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '{', '[', 'n':
		*s = ""
	default:
		*s = looseString(formatNumber(string(data)))
	}
	return nil
}

// looseInt accepts any JSON number and truncates it toward zero. Anything
// else leaves it unset.
type looseInt struct {
	value int64
	set   bool
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	*n = looseInt{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	*n = looseInt{value: int64(f), set: true}
	return nil
}

func (n looseInt) intPtr() *int {
	if !n.set {
		return nil
	}
	v := int(n.value)
	return &v
}

func (n looseInt) int64Ptr() *int64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

// stringMap keeps the string-valued entries of a JSON object. Other values
// and non-object input are ignored.
type stringMap map[string]string

func (m *stringMap) UnmarshalJSON(data []byte) error {
	*m = nil
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(stringMap, len(raw))
	for k, v := range raw {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out[k] = s
		}
	}
	if len(out) > 0 {
		*m = out
	}
	return nil
}

func (m stringMap) plain() map[string]string {
	if len(m) == 0 {
		return nil
	}
	return map[string]string(m)
}

type audioSource struct {
	URL         looseString `json:"url"`
	Type        looseString `json:"type"`
	LengthBytes looseInt    `json:"length_bytes"`
}

type showRefSource struct {
	ShowID       looseString `json:"show_id"`
	Title        looseString `json:"title"`
	Publisher    looseString `json:"publisher"`
	ImageURL     looseString `json:"image_url"`
	ExternalURLs stringMap   `json:"external_urls"`
}

type episodeSource struct {
	EpisodeID   looseString    `json:"episode_id"`
	Title       looseString    `json:"title"`
	Description looseString    `json:"description"`
	PublishedAt looseString    `json:"published_at"`
	DurationSec looseInt       `json:"duration_sec"`
	ImageURL    looseString    `json:"image_url"`
	Language    looseString    `json:"language"`
	Audio       *audioSource   `json:"audio"`
	Show        *showRefSource `json:"show"`
}

func (s episodeSource) item() EpisodeItem {
	item := EpisodeItem{
		EpisodeID:   string(s.EpisodeID),
		Title:       string(s.Title),
		Description: string(s.Description),
		PublishedAt: string(s.PublishedAt),
		DurationSec: s.DurationSec.intPtr(),
		ImageURL:    string(s.ImageURL),
		Language:    string(s.Language),
	}
	if s.Audio != nil {
		item.Audio = &Audio{
			URL:         string(s.Audio.URL),
			Type:        string(s.Audio.Type),
			LengthBytes: s.Audio.LengthBytes.int64Ptr(),
		}
	}
	if s.Show != nil {
		item.Show = &ShowRef{
			ShowID:       string(s.Show.ShowID),
			Title:        string(s.Show.Title),
			Publisher:    string(s.Show.Publisher),
			ImageURL:     string(s.Show.ImageURL),
			ExternalURLs: s.Show.ExternalURLs.plain(),
		}
	}
	return item
}

type showSource struct {
	ShowID       looseString `json:"show_id"`
	Title        looseString `json:"title"`
	Description  looseString `json:"description"`
	Language     looseString `json:"language"`
	Publisher    looseString `json:"publisher"`
	ImageURL     looseString `json:"image_url"`
	EpisodeCount looseInt    `json:"episode_count"`
	ExternalIDs  stringMap   `json:"external_ids"`
	ExternalURLs stringMap   `json:"external_urls"`
}

func (s showSource) item() ShowItem {
	return ShowItem{
		ShowID:       string(s.ShowID),
		Title:        string(s.Title),
		Description:  string(s.Description),
		Language:     string(s.Language),
		Publisher:    string(s.Publisher),
		ImageURL:     string(s.ImageURL),
		EpisodeCount: s.EpisodeCount.intPtr(),
		ExternalIDs:  s.ExternalIDs.plain(),
		ExternalURLs: s.ExternalURLs.plain(),
	}
}

// formatNumber renders a JSON number id without exponent notation.
func formatNumber(raw string) string {
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
