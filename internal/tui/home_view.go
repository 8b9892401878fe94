package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var asciiLogo = []string{
	`██████╗ ██████╗ ██╗███████╗███████╗██╗  ██╗   ██╗`,
	`██╔══██╗██╔══██╗██║██╔════╝██╔════╝██║  ╚██╗ ██╔╝`,
	`██████╔╝██████╔╝██║█████╗  █████╗  ██║   ╚████╔╝ `,
	`██╔══██╗██╔══██╗██║██╔══╝  ██╔══╝  ██║    ╚██╔╝  `,
	`██████╔╝██║  ██║██║███████╗██║     ███████╗██║   `,
	`╚═════╝ ╚═╝  ╚═╝╚═╝╚══════╝╚═╝     ╚══════╝╚═╝   `,
}

func renderHomeScreen(width, height int, user string) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorAccent)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorText)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)

	var lines []string

	for _, l := range asciiLogo {
		lines = append(lines, logoStyle.Render(l))
	}
	lines = append(lines, "")
	if user != "" {
		lines = append(lines, "          "+dimStyle.Render("signed in as "+user))
	} else {
		lines = append(lines, "          "+dimStyle.Render("not signed in · run `briefly login` to like articles"))
	}
	lines = append(lines, "")

	lines = append(lines, "          "+keyStyle.Render("[1]")+"  "+labelStyle.Render("Latest articles"))
	lines = append(lines, "          "+keyStyle.Render("[2]")+"  "+labelStyle.Render("For you"))
	lines = append(lines, "          "+keyStyle.Render("[3]")+"  "+labelStyle.Render("Liked"))
	lines = append(lines, "")
	lines = append(lines, "          "+keyStyle.Render("[q]")+"  "+labelStyle.Render("Quit"))

	content := strings.Join(lines, "\n")
	contentHeight := strings.Count(content, "\n") + 1

	topPad := (height - contentHeight) / 3
	if topPad < 0 {
		topPad = 0
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
