package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPromptMasksSecret(t *testing.T) {
	var m tea.Model = newPrompt("Password", true)
	m, _ = m.Update(key("hunter22"))
	if v := m.View(); strings.Contains(v, "hunter22") {
		t.Errorf("secret echoed: %q", v)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p := m.(promptModel)
	if !p.done || p.input.Value() != "hunter22" {
		t.Errorf("unexpected prompt state done=%v value=%q", p.done, p.input.Value())
	}
	if cmd == nil {
		t.Error("enter should quit the prompt")
	}
}

func TestPromptCancel(t *testing.T) {
	var m tea.Model = newPrompt("Username", false)
	m, _ = m.Update(key("ada"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.(promptModel).cancelled {
		t.Error("esc should cancel")
	}
}
