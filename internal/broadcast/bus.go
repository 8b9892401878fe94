// Package broadcast tells every interested surface, in this process and in
// other processes sharing the cache, that the like-set changed.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Change describes a like-set mutation. A Resync change carries no article:
// the receiver re-reads its state.
type Change struct {
	ArticleID article.ID `json:"article_id,omitempty"`
	Liked     bool       `json:"liked"`
	Resync    bool       `json:"resync,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Origin    string     `json:"origin,omitempty"`
}

type Handler func(Change)

// Relay carries changes between processes.
type Relay interface {
	// Announce hands a locally published change to other processes.
	Announce(ctx context.Context, c Change) error
	// Listen delivers changes made by other processes until ctx is done.
	Listen(ctx context.Context, deliver func(Change)) error
}

// Bus is an in-process publish/subscribe hub with optional relays.
type Bus struct {
	origin string
	log    *zap.Logger

	mu     sync.RWMutex
	subs   map[int]Handler
	next   int
	relays []Relay
}

func NewBus(origin string, log *zap.Logger, relays ...Relay) *Bus {
	return &Bus{
		origin: origin,
		log:    logger.OrNop(log).Named("bus"),
		subs:   make(map[int]Handler),
		relays: relays,
	}
}

func (b *Bus) Origin() string { return b.origin }

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (cancel func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers c to local subscribers before it returns, then announces
// it on every relay. Relay failures are logged.
func (b *Bus) Publish(ctx context.Context, c Change) {
	if c.Origin == "" {
		c.Origin = b.origin
	}
	b.Deliver(c)

	for _, r := range b.relays {
		if err := r.Announce(ctx, c); err != nil {
			b.log.Warn("announcing change", zap.String("error", logger.SanitizeError(err)))
		}
	}
}

// Deliver hands c to local subscribers only.
func (b *Bus) Deliver(c Change) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(c)
	}
}

// Run listens on every relay until ctx is done, delivering remote changes
// locally. A relay that fails stops Run with its error.
func (b *Bus) Run(ctx context.Context) error {
	if len(b.relays) == 0 {
		<-ctx.Done()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range b.relays {
		g.Go(func() error {
			return r.Listen(ctx, b.Deliver)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
