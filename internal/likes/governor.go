// Package likes keeps a user's like-set fresh and applies toggles.
package likes

import (
	"context"
	"sync"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCooldown is the minimum interval between two remote reads for one key.
const DefaultCooldown = 5 * time.Second

// Mode separates the governor's bookkeeping for the views sharing a user.
type Mode string

const (
	ModeLikeSet       Mode = "like-set"
	ModeLikedArticles Mode = "liked-articles"
)

type Key struct {
	UserID string
	Mode   Mode
}

func (k Key) String() string { return string(k.Mode) + "/" + k.UserID }

// LikeStore is the durable copy of the like-set.
type LikeStore interface {
	ReadLikes() article.LikeSet
	WriteLikes(article.LikeSet) error
}

// LikeFetcher reads the authoritative like-set.
type LikeFetcher interface {
	FetchLikeSet(ctx context.Context, userID string) (article.LikeSet, error)
}

// Governor rate-limits remote reads per (user, mode). A key's timestamp is
// recorded only after a successful fetch.
type Governor struct {
	store    LikeStore
	remote   LikeFetcher
	cooldown time.Duration
	log      *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu          sync.Mutex
	lastSuccess map[Key]time.Time
	group       singleflight.Group
}

func NewGovernor(store LikeStore, remote LikeFetcher, cooldown time.Duration, log *zap.Logger) *Governor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Governor{
		store:       store,
		remote:      remote,
		cooldown:    cooldown,
		log:         logger.OrNop(log).Named("governor"),
		Now:         time.Now,
		lastSuccess: make(map[Key]time.Time),
	}
}

// GetLikeSet returns the user's like-set: the cached copy inside the cooldown
// window or after a failed fetch, otherwise the freshly fetched set, which is
// also written to the cache.
func (g *Governor) GetLikeSet(ctx context.Context, userID string) article.LikeSet {
	if userID == "" {
		return g.store.ReadLikes()
	}

	var (
		fetched article.LikeSet
		ran     bool
	)
	_, err := g.Refresh(ctx, Key{UserID: userID, Mode: ModeLikeSet}, func(ctx context.Context) error {
		likes, err := g.remote.FetchLikeSet(ctx, userID)
		if err != nil {
			return err
		}
		if err := g.store.WriteLikes(likes); err != nil {
			// The fetch itself succeeded; a later read falls back to whatever the cache holds.
			g.log.Warn("caching like-set", zap.String("error", logger.SanitizeError(err)))
		}
		fetched, ran = likes, true
		return nil
	})
	if err != nil {
		g.log.Debug("serving cached like-set after failed fetch",
			zap.String("user", logger.SanitizeUserID(userID)),
			zap.String("error", logger.SanitizeError(err)))
	}
	if ran {
		return fetched
	}
	return g.store.ReadLikes()
}

// Refresh runs fetch for key unless the key is cooling down, in which case it
// returns false. Concurrent callers with the same key share one run.
func (g *Governor) Refresh(ctx context.Context, key Key, fetch func(context.Context) error) (bool, error) {
	if g.cooling(key) {
		return false, nil
	}

	_, err, _ := g.group.Do(key.String(), func() (interface{}, error) {
		// Another caller may have finished a fetch while we waited.
		if g.cooling(key) {
			return nil, nil
		}
		if err := fetch(ctx); err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.lastSuccess[key] = g.Now()
		g.mu.Unlock()
		return nil, nil
	})
	return true, err
}

// LastSuccess returns the time of the last successful fetch for key.
func (g *Governor) LastSuccess(key Key) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.lastSuccess[key]
	return t, ok
}

// Forget drops every key of userID, so the next read goes to the server.
func (g *Governor) Forget(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.lastSuccess {
		if k.UserID == userID {
			delete(g.lastSuccess, k)
		}
	}
}

func (g *Governor) cooling(key Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastSuccess[key]
	return ok && g.Now().Sub(last) < g.cooldown
}
