package broadcast

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultDebounce     = 300 * time.Millisecond
)

// Debouncer runs fn once after Trigger has not been called for wait.
type Debouncer struct {
	wait time.Duration
	fn   func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(wait time.Duration, fn func()) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{wait: wait, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.fn)
}

// Stop cancels a pending run. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

type LikeReader interface {
	ReadLikes() article.LikeSet
}

// Poller is the fallback for surfaces without an event path: it reads the
// cached like-set every interval and calls onChange when it differs from the
// previous read.
type Poller struct {
	store    LikeReader
	interval time.Duration
	onChange func()
}

func NewPoller(store LikeReader, interval time.Duration, onChange func()) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{store: store, interval: interval, onChange: onChange}
}

func (p *Poller) Run(ctx context.Context) {
	last := fingerprint(p.store.ReadLikes())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := fingerprint(p.store.ReadLikes())
			if cur != last {
				last = cur
				p.onChange()
			}
		}
	}
}

func fingerprint(s article.LikeSet) string {
	ids := s.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "\x00")
}
