// Package surface holds the like state one mounted view renders.
package surface

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/broadcast"
	"github.com/matheuskafuri/briefly/internal/logger"
	"go.uber.org/zap"
)

// LikeSource yields the current like-set, possibly from cache.
type LikeSource interface {
	GetLikeSet(ctx context.Context, userID string) article.LikeSet
}

type Options struct {
	// Debounce collapses resync notifications. Zero means 300ms.
	Debounce time.Duration
	// OnUpdate is called after the surface's state changed. It may be called
	// from any goroutine.
	OnUpdate func()
	Logger   *zap.Logger
}

// Surface tracks like indicators for one view. After Close, notifications and
// late results no longer change it.
type Surface struct {
	name     string
	userID   string
	src      LikeSource
	onUpdate func()
	log      *zap.Logger

	alive       atomic.Bool
	unsubscribe func()
	debounce    *broadcast.Debouncer
	stopPoll    context.CancelFunc

	mu          sync.RWMutex
	likes       article.LikeSet
	tracked     map[article.ID]struct{}
	speculative map[article.ID]bool
}

// Mount creates a surface for userID and subscribes it to bus. Call Sync to
// load the initial state.
func Mount(name string, bus *broadcast.Bus, src LikeSource, userID string, opts Options) *Surface {
	s := &Surface{
		name:        name,
		userID:      userID,
		src:         src,
		onUpdate:    opts.OnUpdate,
		log:         logger.OrNop(opts.Logger).Named("surface").With(zap.String("surface", name)),
		tracked:     make(map[article.ID]struct{}),
		speculative: make(map[article.ID]bool),
	}
	s.alive.Store(true)
	s.debounce = broadcast.NewDebouncer(opts.Debounce, func() {
		s.Sync(context.Background())
	})
	if bus != nil {
		s.unsubscribe = bus.Subscribe(s.handle)
	}
	return s
}

func (s *Surface) Name() string { return s.name }

func (s *Surface) Alive() bool { return s.alive.Load() }

// Sync replaces the surface's like-set with the source's current one.
func (s *Surface) Sync(ctx context.Context) {
	if !s.Alive() {
		return
	}
	likes := s.src.GetLikeSet(ctx, s.userID)
	if !s.Alive() {
		return
	}
	s.mu.Lock()
	s.likes = likes
	s.mu.Unlock()
	s.notify()
}

// Track declares the articles the surface renders.
func (s *Surface) Track(ids ...article.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = make(map[article.ID]struct{}, len(ids))
	for _, id := range ids {
		s.tracked[id] = struct{}{}
	}
}

// Liked is the state to render for id: a pending speculation if any,
// otherwise the last known like-set membership.
func (s *Surface) Liked(id article.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.speculative[id]; ok {
		return v
	}
	return s.likes.Contains(id)
}

// Likes returns a copy of the surface's like-set.
func (s *Surface) Likes() article.LikeSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.likes.Clone()
}

// Speculate shows liked for id until the confirmed state arrives or Settle
// is called.
func (s *Surface) Speculate(id article.ID, liked bool) {
	if !s.Alive() {
		return
	}
	s.mu.Lock()
	s.speculative[id] = liked
	s.mu.Unlock()
	s.notify()
}

// Settle drops the speculation for id, e.g. after a failed toggle.
func (s *Surface) Settle(id article.ID) {
	if !s.Alive() {
		return
	}
	s.mu.Lock()
	delete(s.speculative, id)
	s.mu.Unlock()
	s.notify()
}

// Poll starts the fallback cache poll. Changes it sees are debounced with
// bus notifications.
func (s *Surface) Poll(store broadcast.LikeReader, interval time.Duration) {
	if !s.Alive() || interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.stopPoll != nil {
		s.stopPoll()
	}
	s.stopPoll = cancel
	s.mu.Unlock()

	go broadcast.NewPoller(store, interval, s.debounce.Trigger).Run(ctx)
}

// Close unmounts the surface.
func (s *Surface) Close() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.debounce.Stop()
	s.mu.Lock()
	if s.stopPoll != nil {
		s.stopPoll()
	}
	s.mu.Unlock()
}

func (s *Surface) handle(c broadcast.Change) {
	if !s.Alive() {
		return
	}
	if c.UserID != "" && c.UserID != s.userID {
		return
	}
	if c.Resync || c.ArticleID == "" {
		s.debounce.Trigger()
		return
	}

	s.mu.Lock()
	s.likes.Set(c.ArticleID, c.Liked)
	delete(s.speculative, c.ArticleID)
	_, shown := s.tracked[c.ArticleID]
	shown = shown || len(s.tracked) == 0
	s.mu.Unlock()

	s.log.Debug("like changed", zap.String("article", c.ArticleID.String()), zap.Bool("liked", c.Liked))
	if shown {
		s.notify()
	}
}

func (s *Surface) notify() {
	if s.onUpdate != nil && s.Alive() {
		s.onUpdate()
	}
}
