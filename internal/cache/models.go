package cache

import (
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
)

// Stored is an article as kept in the local article store.
type Stored struct {
	article.Article
	FetchedAt time.Time
}

type QueryOpts struct {
	Tags   []string
	Title  string
	Author string
	Limit  int
}

// Session is the signed-in principal persisted between runs.
type Session struct {
	Token  string
	UserID string
	Role   string
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.Role == "admin"
}

// Revision identifies the last write to the like-set slot.
type Revision struct {
	Seq    int64
	Origin string
}
