package tui

import (
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/likes"
)

// viewLoadedMsg carries an assembled view. seq identifies the request so
// results of superseded loads are dropped.
type viewLoadedMsg struct {
	seq  int
	view feed.View
	err  error
}

type feedErrMsg struct {
	err error
}

type toggleDoneMsg struct {
	id      article.ID
	outcome likes.Outcome
	err     error
}

// likesChangedMsg means a surface's like state changed.
type likesChangedMsg struct{}

type refreshTickMsg time.Time

// relayDownMsg means the bus stopped hearing from other processes.
type relayDownMsg struct {
	err error
}
