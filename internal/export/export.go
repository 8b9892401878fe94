// Package export renders article lists as syndication feeds.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/matheuskafuri/briefly/internal/article"
)

type Format string

const (
	Atom Format = "atom"
	RSS  Format = "rss"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Atom, RSS, JSON:
		return f, nil
	case "":
		return Atom, nil
	}
	return "", fmt.Errorf("unknown feed format %q (valid: atom, rss, json)", s)
}

type Meta struct {
	Title       string
	Link        string
	Description string
	Author      string
	// Now stamps the feed; zero means time.Now().
	Now time.Time
}

// Build converts articles into a feed. Articles without a URL link to
// link/article/{id}.
func Build(meta Meta, articles []article.Article) *feeds.Feed {
	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}
	f := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: meta.Description,
		Created:     now,
		Updated:     now,
	}
	if meta.Author != "" {
		f.Author = &feeds.Author{Name: meta.Author}
	}

	for _, a := range articles {
		link := a.URL
		if link == "" {
			link = strings.TrimRight(meta.Link, "/") + "/article/" + string(a.ID)
		}
		created := a.Published()
		if created.IsZero() {
			created = now
		}
		item := &feeds.Item{
			Id:          string(a.ID),
			Title:       a.Title,
			Link:        &feeds.Link{Href: link},
			Author:      &feeds.Author{Name: a.SourceLabel()},
			Description: a.SummaryText(),
			Created:     created,
		}
		if len(a.Summarization.KeyPoints) > 0 {
			item.Content = keyPointsHTML(a.Summarization.KeyPoints)
		}
		if a.Img != "" {
			item.Enclosure = &feeds.Enclosure{Url: a.Img, Type: "image/jpeg", Length: "0"}
		}
		f.Items = append(f.Items, item)
	}
	return f
}

// Write renders articles to w in the given format.
func Write(w io.Writer, format Format, meta Meta, articles []article.Article) error {
	f := Build(meta, articles)
	var err error
	switch format {
	case Atom:
		err = f.WriteAtom(w)
	case RSS:
		err = f.WriteRss(w)
	case JSON:
		err = f.WriteJSON(w)
	default:
		return fmt.Errorf("unknown feed format %q", format)
	}
	if err != nil {
		return fmt.Errorf("writing %s feed: %w", format, err)
	}
	return nil
}

func keyPointsHTML(points []string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, p := range points {
		b.WriteString("<li>")
		b.WriteString(escape(p))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return htmlEscaper.Replace(s) }
