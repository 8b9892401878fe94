package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/briefly/internal/category"
	"github.com/matheuskafuri/briefly/internal/feed"
)

var modes = []feed.Mode{feed.ModePlain, feed.ModePersonalized, feed.ModeLiked}

// filterBar holds the selected feed mode and category, and the cursor of the
// category picker.
type filterBar struct {
	mode         feed.Mode
	categories   []category.Category
	active       category.Category
	filterMode   bool
	filterCursor int
}

func newFilterBar(mode feed.Mode, active category.Category) filterBar {
	f := filterBar{
		mode:       mode,
		categories: category.AllCategories(),
		active:     active,
	}
	f.filterCursor = f.indexOf(active)
	return f
}

func (f *filterBar) indexOf(c category.Category) int {
	for i, x := range f.categories {
		if x == c {
			return i
		}
	}
	return 0
}

func (f *filterBar) nextMode() {
	for i, m := range modes {
		if m == f.mode {
			f.mode = modes[(i+1)%len(modes)]
			return
		}
	}
	f.mode = feed.ModePlain
}

func (f *filterBar) setMode(i int) bool {
	if i < 0 || i >= len(modes) || modes[i] == f.mode {
		return false
	}
	f.mode = modes[i]
	return true
}

func (f *filterBar) nextCategory() {
	f.active = f.active.Next()
	f.filterCursor = f.indexOf(f.active)
}

// selectCurrent activates the category under the picker cursor and reports
// whether it changed.
func (f *filterBar) selectCurrent() bool {
	if f.filterCursor >= len(f.categories) {
		return false
	}
	c := f.categories[f.filterCursor]
	if c == f.active {
		return false
	}
	f.active = c
	return true
}

// categoryApplies reports whether the category narrows the current mode.
func (f *filterBar) categoryApplies() bool {
	return f.mode != feed.ModeLiked
}

func (f *filterBar) render(width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	for _, m := range modes {
		if m == f.mode {
			parts = append(parts, tabActiveStyle.Render(string(m)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(string(m)))
		}
	}

	if f.categoryApplies() {
		if f.filterMode {
			for i, c := range f.categories {
				style := tabInactiveStyle
				if c == f.active {
					style = tabActiveStyle
				}
				label := string(c)
				if i == f.filterCursor {
					label = "[" + label + "]"
				}
				parts = append(parts, style.Render(label))
			}
		} else {
			parts = append(parts, tabSeparatorStyle.Render("category: ")+tabActiveStyle.Render(string(f.active)))
		}
	}

	// Build the row, stopping when the next part would exceed width. In the
	// picker the row scrolls so the cursor stays visible.
	start := 0
	if f.filterMode && f.categoryApplies() {
		for start < len(modes)+f.filterCursor && rowWidth(parts[start:len(modes)+f.filterCursor+1], sep) > width {
			start++
		}
	}
	var row string
	for i, part := range parts[start:] {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}

func rowWidth(parts []string, sep string) int {
	w := 0
	for i, p := range parts {
		if i > 0 {
			w += lipgloss.Width(sep)
		}
		w += lipgloss.Width(p)
	}
	return w
}
