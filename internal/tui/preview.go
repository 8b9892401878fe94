package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/feed"
)

func renderPreview(a *article.Article, st rowState, link string, width, height, scroll int) string {
	if a == nil {
		return lipglossCenter("Select an article", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(a.Title)

	date := "undated"
	if t := a.Published(); !t.IsZero() {
		date = t.Format("Jan 2, 2006")
	}
	source := previewSourceStyle.Render(a.SourceLabel()+" · "+date) + "  " + likeMark(st.liked, st.pending)
	if st.liked {
		source += likedStyle.Render(" liked")
	}

	parts := []string{title, source}
	if len(a.Summarization.Tags) > 0 {
		parts = append(parts, previewTagStyle.Render(strings.Join(a.Summarization.Tags, " · ")))
	}

	body := previewBodyStyle.Width(contentWidth).Render(wrapText(feed.StripHTML(a.SummaryText()), contentWidth))
	parts = append(parts, "", body)

	if len(a.Summarization.KeyPoints) > 0 {
		parts = append(parts, "", previewHeadingStyle.Render("Key points"))
		for _, p := range a.Summarization.KeyPoints {
			parts = append(parts, previewBodyStyle.Render(wrapText("• "+feed.StripHTML(p), contentWidth)))
		}
	}

	if link != "" {
		parts = append(parts, previewLinkStyle.Width(contentWidth).Render("Read more: "+link))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
