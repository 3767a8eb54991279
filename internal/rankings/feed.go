package rankings

import (
	"fmt"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/Aman-CERP/podsearch/internal/charts"
	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

// Feed formats accepted by Render.
const (
	FormatRSS  = "rss"
	FormatAtom = "atom"
	FormatJSON = "json"
)

// ParseFormat normalizes a feed format. An empty string selects RSS.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "":
		return FormatRSS, nil
	case FormatRSS, FormatAtom, FormatJSON:
		return f, nil
	default:
		return "", perrors.ValidationError("format", "format must be rss, atom or json")
	}
}

// BuildFeed turns a rankings result into a syndication feed. selfURL is
// the link of the feed itself.
func BuildFeed(r *Result, selfURL string) *feeds.Feed {
	kind := "Podcasts"
	if r.Type == charts.TypeEpisode {
		kind = "Podcast Episodes"
	}
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Top %s (%s)", kind, strings.ToUpper(r.Region)),
		Link:        &feeds.Link{Href: selfURL, Rel: "self"},
		Description: fmt.Sprintf("Apple Podcasts top %s chart for %s", strings.ToLower(kind), strings.ToUpper(r.Region)),
		Id:          selfURL,
		Updated:     r.UpdatedAt,
		Created:     r.UpdatedAt,
	}
	for _, item := range r.Items {
		fi := &feeds.Item{
			Title:       fmt.Sprintf("#%d %s", item.Rank, item.Title),
			Id:          item.ShowID,
			Description: item.Publisher,
			Created:     r.UpdatedAt,
		}
		if u := item.ExternalURLs["apple_podcasts"]; u != "" {
			fi.Link = &feeds.Link{Href: u, Rel: "alternate", Type: "text/html"}
		} else {
			fi.Link = &feeds.Link{Href: selfURL}
		}
		if item.Publisher != "" {
			fi.Author = &feeds.Author{Name: item.Publisher}
		}
		if item.ImageURL != "" {
			fi.Enclosure = &feeds.Enclosure{Url: item.ImageURL, Type: "image/jpeg", Length: "0"}
		}
		feed.Add(fi)
	}
	return feed
}

// Render serializes feed in format and returns the body and content type.
func Render(feed *feeds.Feed, format string) (string, string, error) {
	switch strings.ToLower(format) {
	case "", FormatRSS:
		body, err := feed.ToRss()
		return body, "application/rss+xml; charset=utf-8", err
	case FormatAtom:
		body, err := feed.ToAtom()
		return body, "application/atom+xml; charset=utf-8", err
	case FormatJSON:
		body, err := feed.ToJSON()
		return body, "application/feed+json; charset=utf-8", err
	default:
		return "", "", fmt.Errorf("unknown feed format %q: want rss, atom or json", format)
	}
}
