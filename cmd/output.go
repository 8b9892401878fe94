package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/feed"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"})
	likedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#E0245E", Dark: "#FF5C8A"})
	noticeStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#3D3D3D", Dark: "#ABABAB"})
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"})
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
)

// heart renders the like indicator used in listings.
func heart(liked bool) string {
	if liked {
		return likedStyle.Render("♥")
	}
	return metaStyle.Render("♡")
}

// printArticles writes one entry per article. likes may be empty for
// signed-out users.
func printArticles(w io.Writer, articles []article.Article, likes article.LikeSet, showSummary bool) {
	for _, a := range articles {
		fmt.Fprintf(w, "%s %s\n", heart(likes.Contains(a.ID)), titleStyle.Render(a.Title))

		meta := []string{string(a.ID), a.PrimaryCategory(), a.SourceLabel()}
		if t := a.Published(); !t.IsZero() {
			meta = append(meta, t.Format("Jan 2, 2006"))
		}
		fmt.Fprintf(w, "  %s\n", metaStyle.Render(strings.Join(meta, " · ")))

		if showSummary {
			fmt.Fprintf(w, "  %s\n", feed.Excerpt(a.SummaryText(), 160))
		}
	}
}

func printView(w io.Writer, v feed.View, likes article.LikeSet, showSummary bool) {
	if v.Message != "" {
		fmt.Fprintln(w, noticeStyle.Render(v.Message))
		fmt.Fprintln(w)
	}
	printArticles(w, v.Articles, likes, showSummary)
	if len(v.Articles) > 0 {
		fmt.Fprintf(w, "\n%s\n", metaStyle.Render(fmt.Sprintf("%d article(s)", len(v.Articles))))
	}
}
