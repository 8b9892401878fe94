package article

import (
	"encoding/json"
	"time"
)

type Summarization struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Tags      []string `json:"tags"`
}

// Article is an article as served by the API. It is read-only on the client.
type Article struct {
	ID            ID            `json:"id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	PublishedDate string        `json:"published_date"`
	URL           string        `json:"url"`
	Img           string        `json:"img"`
	Summarization Summarization `json:"summarization"`
}

// wireArticle carries both id fields found in API payloads.
type wireArticle struct {
	PrimaryID     ID            `json:"_id"`
	LegacyID      ID            `json:"id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	PublishedDate string        `json:"published_date"`
	URL           string        `json:"url"`
	Img           string        `json:"img"`
	Summarization Summarization `json:"summarization"`
}

// UnmarshalJSON resolves the article id from "_id", falling back to the
// legacy "id" field.
func (a *Article) UnmarshalJSON(data []byte) error {
	var w wireArticle
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := w.PrimaryID
	if id == "" {
		id = w.LegacyID
	}
	*a = Article{
		ID:            id,
		Title:         w.Title,
		Author:        w.Author,
		PublishedDate: w.PublishedDate,
		URL:           w.URL,
		Img:           w.Img,
		Summarization: w.Summarization,
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
}

// Published parses PublishedDate. The zero time is returned when the date is
// missing or in an unknown layout.
func (a Article) Published() time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, a.PublishedDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HasSummary reports whether the article finished summarization.
func (a Article) HasSummary() bool {
	return a.Summarization.Summary != ""
}

// SourceLabel is the byline shown for an article.
func (a Article) SourceLabel() string {
	if a.Author == "" || a.Author == "No Author" {
		return "Briefly News"
	}
	return a.Author
}

// PrimaryCategory is the first tag, or "General".
func (a Article) PrimaryCategory() string {
	for _, t := range a.Summarization.Tags {
		if t != "" {
			return t
		}
	}
	return "General"
}

func (a Article) SummaryText() string {
	if a.Summarization.Summary == "" {
		return "No summary available"
	}
	return a.Summarization.Summary
}

// WithSummary drops articles that have no summary yet.
func WithSummary(articles []Article) []Article {
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if a.HasSummary() {
			out = append(out, a)
		}
	}
	return out
}
