// Package admin runs the article edit and delete operations. The API decides
// who may run them; this package only reacts to its verdict.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"go.uber.org/zap"
)

var validate = validator.New()

// Edit is an update to an article's summarization. Nil fields are unchanged.
type Edit struct {
	Summary   *string  `validate:"omitempty,max=20000"`
	KeyPoints []string `validate:"omitempty,dive,required,max=2000"`
}

type API interface {
	DeleteArticle(ctx context.Context, id article.ID) (string, error)
	UpdateArticle(ctx context.Context, id article.ID, upd remote.ArticleUpdate) (*article.Article, error)
}

type Store interface {
	ClearToken() error
	DeleteArticle(id article.ID) error
	UpsertArticles([]article.Article) error
}

type Service struct {
	api   API
	store Store
	log   *zap.Logger
}

func NewService(api API, store Store, log *zap.Logger) *Service {
	return &Service{api: api, store: store, log: logger.OrNop(log).Named("admin")}
}

// Delete removes an article on the server and from the local store.
func (s *Service) Delete(ctx context.Context, rawID string) (string, error) {
	id, err := article.Parse(rawID)
	if err != nil {
		return "", err
	}
	msg, err := s.api.DeleteArticle(ctx, id)
	if err != nil {
		return "", s.fail(err)
	}
	if err := s.store.DeleteArticle(id); err != nil {
		s.log.Warn("removing deleted article locally", zap.String("article", id.String()), zap.String("error", logger.SanitizeError(err)))
	}
	return msg, nil
}

// Update applies e to an article and returns the article as the server now
// has it, or nil when the server does not echo it.
func (s *Service) Update(ctx context.Context, rawID string, e Edit) (*article.Article, error) {
	id, err := article.Parse(rawID)
	if err != nil {
		return nil, err
	}
	if e.Summary == nil && e.KeyPoints == nil {
		return nil, fmt.Errorf("nothing to update: %w", article.ErrInvalidArgument)
	}
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("%w: %s", article.ErrInvalidArgument, describe(err))
	}

	updated, err := s.api.UpdateArticle(ctx, id, remote.ArticleUpdate{Summary: e.Summary, KeyPoints: e.KeyPoints})
	if err != nil {
		return nil, s.fail(err)
	}
	if updated != nil {
		if err := s.store.UpsertArticles([]article.Article{*updated}); err != nil {
			s.log.Warn("saving updated article", zap.String("article", id.String()), zap.String("error", logger.SanitizeError(err)))
		}
	}
	return updated, nil
}

// fail forgets the token when the server reports it expired. A permission
// denial keeps it.
func (s *Service) fail(err error) error {
	if errors.Is(err, remote.ErrSessionExpired) {
		if cerr := s.store.ClearToken(); cerr != nil {
			s.log.Warn("clearing expired token", zap.String("error", logger.SanitizeError(cerr)))
		}
	}
	return err
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
