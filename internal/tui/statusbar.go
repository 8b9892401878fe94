package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/briefly/internal/feed"
)

type statusInfo struct {
	count      int
	likes      int
	view       feed.View
	signedIn   bool
	searching  bool
	filtering  bool
	refreshing bool
}

func renderStatusBar(s statusInfo, width int) string {
	likeStyle := lipgloss.NewStyle().
		Foreground(colorLiked).
		Bold(true)

	left := fmt.Sprintf(" %d articles", s.count)
	if s.signedIn {
		left += " · " + likeStyle.Render(fmt.Sprintf("♥ %d", s.likes))
	}
	if s.view.Mode == feed.ModePersonalized && s.view.Status != feed.NotRequested {
		left += " · " + s.view.Status.String()
	}
	if s.view.Stale {
		left += " · offline"
	}
	if s.refreshing {
		left += " (refreshing...)"
	}

	right := " l like  o open  m mode  c category  ? help  q quit "
	switch {
	case s.searching:
		right = " esc cancel  enter search "
	case s.filtering:
		right = " ←/→ move  enter select  esc close "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "
	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
