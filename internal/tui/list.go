package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/feed"
)

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "undated"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// likeMark is the indicator shown next to an article.
func likeMark(liked, pending bool) string {
	switch {
	case pending && liked:
		return pendingStyle.Render("♥")
	case pending:
		return pendingStyle.Render("♡")
	case liked:
		return likedStyle.Render("♥")
	}
	return itemTimeStyle.Render("♡")
}

// rowState is what the list needs to know about one article beyond its
// content.
type rowState struct {
	liked   bool
	pending bool
}

func renderListItem(a article.Article, selected bool, st rowState, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + feed.Truncate(a.Title, width-6))
	} else {
		title = itemTitleStyle.Render("  " + feed.Truncate(a.Title, width-6))
	}
	title += " " + likeMark(st.liked, st.pending)

	meta := "  " + itemSourceStyle.Render(a.PrimaryCategory()) + " " +
		itemTimeStyle.Render("· "+a.SourceLabel()+" · "+relativeTime(a.Published()))

	return title + "\n" + meta
}

func renderList(articles []article.Article, state func(article.ID) rowState, cursor int, height int, width int) string {
	if len(articles) == 0 {
		return lipglossCenter("No articles found", width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(articles) {
		end = len(articles)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(articles[i], i == cursor, state(articles[i].ID), width))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
