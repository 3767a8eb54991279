package rankings

import "github.com/Aman-CERP/podsearch/internal/charts"

// Identifier namespaces for chart entries.
const (
	ShowIDPrefix    = "show:apple:"
	EpisodeIDPrefix = "episode:apple:"
)

// Parse converts a chart into ranked items, rank 1 first, in feed order.
// Publisher is the artist name, else the collection name.
func Parse(feed *charts.Feed, t charts.Type) []Item {
	if feed == nil {
		return []Item{}
	}
	prefix := ShowIDPrefix
	if t == charts.TypeEpisode {
		prefix = EpisodeIDPrefix
	}

	items := make([]Item, 0, len(feed.Results))
	for i, e := range feed.Results {
		item := Item{
			Rank:      i + 1,
			Title:     e.Name,
			Publisher: e.ArtistName,
			ImageURL:  e.ArtworkURL100,
		}
		if e.ID != "" {
			item.ShowID = prefix + e.ID
		}
		if item.Publisher == "" {
			item.Publisher = e.CollectionName
		}
		for _, g := range e.Genres {
			if g.Name != "" && g.Name != "Podcasts" {
				item.Genres = append(item.Genres, g.Name)
			}
		}
		if e.URL != "" {
			item.ExternalURLs = map[string]string{"apple_podcasts": e.URL}
		}
		items = append(items, item)
	}
	return items
}
