// Package feed assembles the article lists a user browses: the plain list,
// the personalized feed with its fallbacks, and the liked-only list.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/category"
	"github.com/matheuskafuri/briefly/internal/likes"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"go.uber.org/zap"
)

// Status is the personalization state of a view.
type Status int

const (
	NotRequested Status = iota
	Requesting
	Personalized
	FallbackPlain
	FallbackEmptyMessage
)

func (s Status) String() string {
	switch s {
	case NotRequested:
		return "not requested"
	case Requesting:
		return "requesting"
	case Personalized:
		return "personalized"
	case FallbackPlain:
		return "fallback: plain list"
	case FallbackEmptyMessage:
		return "fallback: empty"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Mode string

const (
	ModePlain        Mode = "latest"
	ModePersonalized Mode = "for you"
	ModeLiked        Mode = "liked"
)

// User-facing messages.
const (
	MsgLoginToPersonalize = "Log in to get a feed personalized to your likes."
	MsgUnavailable        = "Personalization is unavailable right now; showing the latest articles."
	MsgBasedOnActivity    = "Personalized based on your activity."
	MsgRecentActivity     = "Personalized based on your recent activity. New picks appear as more articles arrive."
	MsgLikeToUnlock       = "Like a few articles to unlock your personalized feed."
	MsgOffline            = "Could not reach the server; showing saved articles."
	MsgNoLikes            = "You have not liked any articles yet."
	MsgLoginForLikes      = "Log in to see the articles you liked."
)

// View is an assembled article list. It is never cached.
type View struct {
	Mode          Mode
	Status        Status
	Category      category.Category
	Articles      []article.Article
	PreferredTags []string
	Message       string
	// Stale means the articles came from the local store.
	Stale bool
}

// Remote is the part of the API client the assembler reads.
type Remote interface {
	GetArticles(ctx context.Context, q remote.ArticleQuery) (remote.ArticleList, error)
	FetchPersonalized(ctx context.Context, userID string) (remote.Personalized, error)
	FetchLikedArticles(ctx context.Context, userID string) (remote.ArticleList, error)
}

// Store is the local article store and like-set cache.
type Store interface {
	ReadLikes() article.LikeSet
	UpsertArticles([]article.Article) error
	GetArticles(opts cache.QueryOpts) ([]cache.Stored, error)
	GetArticlesByIDs(ids []article.ID) ([]cache.Stored, error)
	SetLastRefresh() error
}

// Refresher gates remote reads per (user, mode).
type Refresher interface {
	Refresh(ctx context.Context, key likes.Key, fetch func(context.Context) error) (bool, error)
}

type Assembler struct {
	remote Remote
	store  Store
	gov    Refresher
	log    *zap.Logger

	mu     sync.Mutex
	status Status
}

func NewAssembler(r Remote, store Store, gov Refresher, log *zap.Logger) *Assembler {
	return &Assembler{
		remote: r,
		store:  store,
		gov:    gov,
		log:    logger.OrNop(log).Named("feed"),
	}
}

// Status is the personalization state of the last Personalized call.
func (a *Assembler) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Assembler) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

// Personalized builds the personalized view for userID. Failures fall back to
// the plain list for cat; an error is returned only if that fails as well.
func (a *Assembler) Personalized(ctx context.Context, userID string, cat category.Category) (View, error) {
	if userID == "" {
		v, err := a.Plain(ctx, cat)
		v.Mode, v.Status, v.Message = ModePersonalized, FallbackPlain, MsgLoginToPersonalize
		a.setStatus(FallbackPlain)
		return v, err
	}

	a.setStatus(Requesting)
	resp, err := a.remote.FetchPersonalized(ctx, userID)
	if err != nil {
		a.log.Info("personalized feed unavailable",
			zap.String("user", logger.SanitizeUserID(userID)),
			zap.String("error", logger.SanitizeError(err)))
		v, perr := a.Plain(ctx, cat)
		v.Mode, v.Status, v.Message = ModePersonalized, FallbackPlain, MsgUnavailable
		a.setStatus(FallbackPlain)
		return v, perr
	}

	a.save(resp.Articles)
	v := View{Mode: ModePersonalized, Category: cat, Articles: resp.Articles, PreferredTags: resp.PreferredTags}
	switch {
	case len(resp.PreferredTags) > 0:
		v.Status = Personalized
		v.Message = TagsMessage(resp.PreferredTags)
	case len(resp.Articles) == 0:
		v.Status = FallbackEmptyMessage
		if a.store.ReadLikes().Len() > 0 {
			v.Message = MsgRecentActivity
		} else {
			v.Message = MsgLikeToUnlock
		}
	default:
		v.Status = Personalized
		v.Message = MsgBasedOnActivity
	}
	a.setStatus(v.Status)
	return v, nil
}

// TagsMessage names the tags a personalized feed was built from.
func TagsMessage(tags []string) string {
	return "Personalized for your interest in " + strings.Join(tags, ", ") + "."
}

// Plain lists the latest summarized articles in cat. When the API cannot be
// reached the local store is served instead.
func (a *Assembler) Plain(ctx context.Context, cat category.Category) (View, error) {
	v := View{Mode: ModePlain, Status: NotRequested, Category: cat}

	list, err := a.remote.GetArticles(ctx, remote.ArticleQuery{Tags: cat.Tags()})
	if err == nil {
		v.Articles = article.WithSummary(list.Articles)
		a.save(v.Articles)
		if err := a.store.SetLastRefresh(); err != nil {
			a.log.Debug("recording refresh", zap.String("error", logger.SanitizeError(err)))
		}
		return v, nil
	}

	a.log.Info("serving saved articles", zap.String("error", logger.SanitizeError(err)))
	stored, serr := a.store.GetArticles(cache.QueryOpts{Tags: cat.Tags()})
	if serr != nil {
		return v, fmt.Errorf("listing articles: %w (local store: %v)", err, serr)
	}
	v.Articles = article.WithSummary(unwrap(stored))
	v.Stale = true
	v.Message = MsgOffline
	return v, nil
}

// Liked lists the full articles of every id in the user's like-set. Remote
// reads share the governor with the like-set but under their own key.
func (a *Assembler) Liked(ctx context.Context, userID string) (View, error) {
	v := View{Mode: ModeLiked, Status: NotRequested}
	if userID == "" {
		v.Message = MsgLoginForLikes
		return v, nil
	}

	var (
		fetched []article.Article
		ran     bool
	)
	_, err := a.gov.Refresh(ctx, likes.Key{UserID: userID, Mode: likes.ModeLikedArticles}, func(ctx context.Context) error {
		list, err := a.remote.FetchLikedArticles(ctx, userID)
		if err != nil {
			return err
		}
		a.save(list.Articles)
		fetched, ran = list.Articles, true
		return nil
	})
	if ran {
		v.Articles = fetched
	} else {
		if err != nil {
			a.log.Info("serving saved liked articles", zap.String("error", logger.SanitizeError(err)))
		}
		stored, serr := a.store.GetArticlesByIDs(a.store.ReadLikes().IDs())
		if serr != nil {
			return v, fmt.Errorf("reading liked articles: %w", serr)
		}
		v.Articles = unwrap(stored)
		v.Stale = err != nil
		if v.Stale {
			v.Message = MsgOffline
		}
	}
	if len(v.Articles) == 0 && v.Message == "" {
		v.Message = MsgNoLikes
	}
	return v, nil
}

func (a *Assembler) save(articles []article.Article) {
	if len(articles) == 0 {
		return
	}
	if err := a.store.UpsertArticles(articles); err != nil {
		a.log.Warn("saving articles", zap.String("error", logger.SanitizeError(err)))
	}
}

func unwrap(stored []cache.Stored) []article.Article {
	out := make([]article.Article, len(stored))
	for i, s := range stored {
		out[i] = s.Article
	}
	return out
}
