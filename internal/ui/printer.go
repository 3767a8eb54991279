package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/podsearch/internal/charts"
	"github.com/Aman-CERP/podsearch/internal/rankings"
	"github.com/Aman-CERP/podsearch/internal/response"
	"github.com/Aman-CERP/podsearch/internal/search"
)

// snippetRunes bounds descriptions in text listings.
const snippetRunes = 160

// Printer writes results and status lines to a terminal or pipe.
// Errors from writing are ignored for console output.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a Printer. Color is used only when out is a terminal
// and neither noColor nor NO_COLOR is set.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	return &Printer{
		out:    out,
		styles: GetStyles(noColor || !UseColor(out)),
	}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints a status message with an icon.
func (p *Printer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(p.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(p.out, "   %s\n", msg)
	}
}

// Success prints a success message with checkmark.
func (p *Printer) Success(msg string) {
	p.Status("✅", p.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (p *Printer) Successf(format string, args ...any) {
	p.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (p *Printer) Warning(msg string) {
	p.Status("⚠️ ", p.styles.Warning.Render(msg))
}

// Error prints an error message.
func (p *Printer) Error(msg string) {
	p.Status("❌", p.styles.Error.Render(msg))
}

// Episodes lists an episode search result.
func (p *Printer) Episodes(query string, env *search.EpisodeEnvelope) {
	if p.envelopeFailed(env.Error) {
		return
	}
	data := env.Data
	if data == nil || len(data.Items) == 0 {
		_, _ = fmt.Fprintf(p.out, "No episodes found for %q\n", query)
		p.warning(env.Warning)
		return
	}

	p.header(fmt.Sprintf("Episodes matching %q", query), len(data.Items), data.Total, data.Page)
	p.warning(env.Warning)
	for i, ep := range data.Items {
		p.item(i+1, ep.Title)
		var meta []string
		if ep.Show != nil && ep.Show.Title != "" {
			meta = append(meta, ep.Show.Title)
		}
		if ep.PublishedAt != "" {
			meta = append(meta, ep.PublishedAt)
		}
		if ep.DurationSec != nil {
			meta = append(meta, formatDuration(*ep.DurationSec))
		}
		meta = append(meta, ep.EpisodeID)
		p.meta(meta)
		p.snippet(ep.Highlights, ep.Description)
	}
}

// Shows lists a show search result.
func (p *Printer) Shows(query string, env *search.ShowEnvelope) {
	if p.envelopeFailed(env.Error) {
		return
	}
	data := env.Data
	if data == nil || len(data.Items) == 0 {
		_, _ = fmt.Fprintf(p.out, "No shows found for %q\n", query)
		p.warning(env.Warning)
		return
	}

	p.header(fmt.Sprintf("Shows matching %q", query), len(data.Items), data.Total, data.Page)
	p.warning(env.Warning)
	for i, show := range data.Items {
		p.item(i+1, show.Title)
		var meta []string
		if show.Publisher != "" {
			meta = append(meta, show.Publisher)
		}
		if show.EpisodeCount != nil {
			meta = append(meta, fmt.Sprintf("%d episodes", *show.EpisodeCount))
		}
		meta = append(meta, show.ShowID)
		p.meta(meta)
		p.snippet(show.Highlights, show.Description)
	}
}

// Rankings lists a chart.
func (p *Printer) Rankings(res *rankings.Result) {
	noun := "podcasts"
	if res.Type == charts.TypeEpisode {
		noun = "episodes"
	}
	_, _ = fmt.Fprintln(p.out, p.styles.Header.Render(fmt.Sprintf("Top %s in %s", noun, strings.ToUpper(res.Region))))
	if len(res.Items) == 0 {
		p.Warning("the chart is currently unavailable")
		return
	}
	if !res.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintln(p.out, p.styles.Dim.Render("updated "+res.UpdatedAt.Format("2006-01-02 15:04 MST")+" ("+string(res.Served)+")"))
	}
	_, _ = fmt.Fprintln(p.out)
	for _, item := range res.Items {
		line := p.styles.Rank.Render(fmt.Sprintf("%3d.", item.Rank)) + " " + p.styles.Title.Render(item.Title)
		if item.Publisher != "" {
			line += " " + p.styles.Meta.Render("· "+item.Publisher)
		}
		_, _ = fmt.Fprintln(p.out, line)
	}
}

func (p *Printer) envelopeFailed(e *response.Error) bool {
	if e == nil {
		return false
	}
	p.Error(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	return true
}

func (p *Printer) header(title string, n int, total int64, page int) {
	_, _ = fmt.Fprintln(p.out, p.styles.Header.Render(title))
	_, _ = fmt.Fprintln(p.out, p.styles.Dim.Render(fmt.Sprintf("showing %d of %d (page %d)", n, total, page)))
	_, _ = fmt.Fprintln(p.out)
}

func (p *Printer) warning(w string) {
	if w != "" {
		p.Warning(w)
	}
}

func (p *Printer) item(n int, title string) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", p.styles.Rank.Render(fmt.Sprintf("%2d.", n)), p.styles.Title.Render(title))
}

func (p *Printer) meta(parts []string) {
	_, _ = fmt.Fprintf(p.out, "    %s\n", p.styles.Meta.Render(strings.Join(parts, " · ")))
}

func (p *Printer) snippet(highlights map[string][]string, description string) {
	text := ""
	for _, field := range []string{"title", "description"} {
		if frags := highlights[field]; len(frags) > 0 {
			text = strings.Join(frags, " … ")
			break
		}
	}
	if text == "" {
		text = truncate(description, snippetRunes)
	}
	if text != "" {
		_, _ = fmt.Fprintf(p.out, "    %s\n", p.styles.Snippet.Render(text))
	}
	_, _ = fmt.Fprintln(p.out)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func formatDuration(sec int) string {
	h, m := sec/3600, (sec%3600)/60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
