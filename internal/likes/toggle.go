package likes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/broadcast"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"go.uber.org/zap"
)

// PreconditionError is returned when a toggle is refused before any request.
// It wraps remote.ErrAuth or article.ErrInvalidArgument.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot toggle like: %s: %v", e.Reason, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Toggler flips one like on the server and reports the resulting state.
type Toggler interface {
	ToggleLike(ctx context.Context, userID string, articleID article.ID) (remote.LikeState, error)
}

// LikeApplier updates one article's membership in the cached like-set.
type LikeApplier interface {
	ReadLikes() article.LikeSet
	ApplyLike(id article.ID, liked bool) (article.LikeSet, error)
}

type Publisher interface {
	Publish(ctx context.Context, c broadcast.Change)
}

// Outcome is the result of a successful toggle.
type Outcome struct {
	ArticleID article.ID
	// Liked is the server's verdict.
	Liked bool
	// Presumed is what the cache predicted before the request.
	Presumed bool
	// Likes is the cached like-set after the verdict was applied.
	Likes article.LikeSet
}

// Coordinator applies like toggles. Toggles are not serialized: when two
// toggles of one article race, the response applied last wins.
type Coordinator struct {
	remote Toggler
	store  LikeApplier
	bus    Publisher
	log    *zap.Logger

	mu      sync.Mutex
	pending map[article.ID]int
}

func NewCoordinator(remote Toggler, store LikeApplier, bus Publisher, log *zap.Logger) *Coordinator {
	return &Coordinator{
		remote:  remote,
		store:   store,
		bus:     bus,
		log:     logger.OrNop(log).Named("toggle"),
		pending: make(map[article.ID]int),
	}
}

// Presume is the optimistic new state for id: the complement of the cached
// membership. It is for display only.
func (c *Coordinator) Presume(id article.ID) bool {
	return !c.store.ReadLikes().Contains(id)
}

// Pending reports whether a toggle of id is in flight.
func (c *Coordinator) Pending(id article.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[id] > 0
}

// Toggle flips rawID's like for userID. The cache and subscribers receive
// the state returned by the server. On failure the cache is left untouched.
func (c *Coordinator) Toggle(ctx context.Context, userID, rawID string) (Outcome, error) {
	if userID == "" {
		return Outcome{}, &PreconditionError{Reason: "not signed in", Err: remote.ErrAuth}
	}
	if err := article.Check("user id", userID); err != nil {
		return Outcome{}, &PreconditionError{Reason: "bad user id", Err: err}
	}
	id, err := article.Parse(rawID)
	if err != nil {
		return Outcome{}, &PreconditionError{Reason: "bad article id", Err: err}
	}

	presumed := c.Presume(id)
	c.begin(id)
	defer c.end(id)

	state, err := c.remote.ToggleLike(ctx, userID, id)
	if err != nil {
		if errors.Is(err, article.ErrInvalidArgument) {
			return Outcome{}, &PreconditionError{Reason: "bad identifier", Err: err}
		}
		c.log.Info("toggle failed",
			zap.String("article", id.String()),
			zap.String("error", logger.SanitizeError(err)))
		return Outcome{}, err
	}

	likes, err := c.store.ApplyLike(state.ArticleID, state.Liked)
	if err != nil {
		// The server already changed; subscribers still get the verdict.
		c.log.Warn("caching toggle result",
			zap.String("article", id.String()),
			zap.String("error", logger.SanitizeError(err)))
		likes = c.store.ReadLikes()
		likes.Set(state.ArticleID, state.Liked)
	}
	if state.Liked != presumed {
		c.log.Debug("cache was stale", zap.String("article", id.String()), zap.Bool("liked", state.Liked))
	}

	c.bus.Publish(ctx, broadcast.Change{ArticleID: state.ArticleID, Liked: state.Liked, UserID: userID})

	return Outcome{ArticleID: state.ArticleID, Liked: state.Liked, Presumed: presumed, Likes: likes}, nil
}

func (c *Coordinator) begin(id article.ID) {
	c.mu.Lock()
	c.pending[id]++
	c.mu.Unlock()
}

func (c *Coordinator) end(id article.ID) {
	c.mu.Lock()
	if c.pending[id]--; c.pending[id] <= 0 {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}
