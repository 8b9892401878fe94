package broadcast

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/logger"
	"go.uber.org/zap"
)

// RevisionSource reports the revision of the cached like-set.
type RevisionSource interface {
	LikesRevision() (cache.Revision, error)
}

// FileRelay notices like-set writes made by other processes sharing the cache
// file. Writing the cache is the announcement, so Announce does nothing.
type FileRelay struct {
	path   string
	revs   RevisionSource
	origin string
	log    *zap.Logger

	last cache.Revision
}

func NewFileRelay(path string, revs RevisionSource, origin string, log *zap.Logger) *FileRelay {
	return &FileRelay{
		path:   path,
		revs:   revs,
		origin: origin,
		log:    logger.OrNop(log).Named("file-relay"),
	}
}

func (r *FileRelay) Announce(context.Context, Change) error { return nil }

func (r *FileRelay) Listen(ctx context.Context, deliver func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	// SQLite replaces journal files next to the database, so the directory is watched.
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(r.path), err)
	}

	if rev, err := r.revs.LikesRevision(); err == nil {
		r.last = rev
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !r.relevant(ev) {
				continue
			}
			if c, changed := r.check(); changed {
				deliver(c)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watch error", zap.String("error", logger.SanitizeError(err)))
		}
	}
}

func (r *FileRelay) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), filepath.Base(r.path))
}

// check compares the stored revision with the last one seen. A revision
// written by this process is recorded but not delivered, unless revisions
// were skipped since the last check: one of those may be another writer's.
func (r *FileRelay) check() (Change, bool) {
	rev, err := r.revs.LikesRevision()
	if err != nil {
		r.log.Debug("reading revision", zap.String("error", logger.SanitizeError(err)))
		return Change{}, false
	}
	if rev == r.last {
		return Change{}, false
	}
	prev := r.last
	r.last = rev
	if rev.Origin == r.origin && rev.Seq <= prev.Seq+1 {
		return Change{}, false
	}
	return Change{Resync: true, Origin: rev.Origin}, true
}
