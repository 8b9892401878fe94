package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/logger"
	"go.uber.org/zap"
)

// TokenSource supplies the bearer token of the signed-in user, or "".
type TokenSource interface {
	Token() string
}

type Options struct {
	// Timeout bounds each HTTP attempt. Zero means 10s.
	Timeout time.Duration
	// Retries is how many times an idempotent GET is retried after a
	// transport error or 5xx.
	Retries uint64
	// RetryWait is the first backoff interval. Zero means 250ms.
	RetryWait  time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
}

// Client talks to the briefly API.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	retries   uint64
	retryWait time.Duration
	log       *zap.Logger
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      hc,
		tokens:    opts.Tokens,
		retries:   opts.Retries,
		retryWait: wait,
		log:       log.Named("remote"),
	}
}

// --- articles ---

func (c *Client) GetArticles(ctx context.Context, q ArticleQuery) (ArticleList, error) {
	params := url.Values{}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	for _, tag := range q.Tags {
		params.Add("tags", tag)
	}
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}

	var list ArticleList
	if err := c.get(ctx, "/api/get_articles?"+params.Encode(), &list, authNone); err != nil {
		return ArticleList{}, fmt.Errorf("listing articles: %w", err)
	}
	return list, nil
}

func (c *Client) GenerateArticles(ctx context.Context, req GenerateRequest) (GenerateReport, error) {
	var report GenerateReport
	if err := c.do(ctx, http.MethodPost, "/api/generate_articles", req, &report, authNone); err != nil {
		return GenerateReport{}, fmt.Errorf("generating articles: %w", err)
	}
	return report, nil
}

// --- auth ---

func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp, authNone); err != nil {
		return LoginResponse{}, fmt.Errorf("logging in: %w", err)
	}
	if resp.AccessToken == "" {
		return LoginResponse{}, fmt.Errorf("logging in: no access token in response: %w", ErrAuth)
	}
	return resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp struct {
		Msg string `json:"msg"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", req, &resp, authNone); err != nil {
		return "", fmt.Errorf("registering: %w", err)
	}
	return resp.Msg, nil
}

// --- likes ---

// FetchLikeSet reads the user's like-set from the API.
func (c *Client) FetchLikeSet(ctx context.Context, userID string) (article.LikeSet, error) {
	if err := article.Check("user id", userID); err != nil {
		return article.LikeSet{}, err
	}
	var resp likesResponse
	if err := c.get(ctx, "/api/user/likes/"+url.PathEscape(userID), &resp, authOptional); err != nil {
		return article.LikeSet{}, fmt.Errorf("fetching likes: %w", err)
	}
	if !resp.Success && resp.Error != "" {
		return article.LikeSet{}, fmt.Errorf("fetching likes: %w: %s", ErrNetwork, resp.Error)
	}
	return article.NewLikeSet(resp.Likes...), nil
}

// ToggleLike flips the user's like on one article and returns the state the
// server ended up with. When the API does not echo the new state it is read
// back from the user's like-set.
func (c *Client) ToggleLike(ctx context.Context, userID string, articleID article.ID) (LikeState, error) {
	if err := article.Check("user id", userID); err != nil {
		return LikeState{}, err
	}
	id, err := article.Parse(string(articleID))
	if err != nil {
		return LikeState{}, err
	}

	var resp likeResponse
	err = c.do(ctx, http.MethodPost, "/api/like_article", likeRequest{UserID: userID, ArticleID: string(id)}, &resp, authOptional)
	if err != nil {
		return LikeState{}, fmt.Errorf("toggling like on %s: %w", id, err)
	}
	if !resp.Success {
		return LikeState{}, fmt.Errorf("toggling like on %s: %w: %s", id, ErrNetwork, resp.Error)
	}
	if resp.Liked != nil {
		return LikeState{ArticleID: id, Liked: *resp.Liked}, nil
	}

	likes, err := c.FetchLikeSet(ctx, userID)
	if err != nil {
		return LikeState{}, fmt.Errorf("reading back like on %s: %w", id, err)
	}
	return LikeState{ArticleID: id, Liked: likes.Contains(id)}, nil
}

func (c *Client) FetchLikedArticles(ctx context.Context, userID string) (ArticleList, error) {
	if err := article.Check("user id", userID); err != nil {
		return ArticleList{}, err
	}
	var list ArticleList
	if err := c.get(ctx, "/api/user/liked_articles/"+url.PathEscape(userID), &list, authOptional); err != nil {
		return ArticleList{}, fmt.Errorf("fetching liked articles: %w", err)
	}
	return list, nil
}

func (c *Client) FetchPersonalized(ctx context.Context, userID string) (Personalized, error) {
	if err := article.Check("user id", userID); err != nil {
		return Personalized{}, err
	}
	var p Personalized
	if err := c.get(ctx, "/api/personalized_articles/"+url.PathEscape(userID), &p, authOptional); err != nil {
		return Personalized{}, fmt.Errorf("fetching personalized articles: %w", err)
	}
	return p, nil
}

// --- admin ---

func (c *Client) DeleteArticle(ctx context.Context, id article.ID) (string, error) {
	id, err := article.Parse(string(id))
	if err != nil {
		return "", err
	}
	var resp mutationResponse
	if err := c.do(ctx, http.MethodDelete, "/api/delete_article/"+url.PathEscape(string(id)), nil, &resp, authRequired); err != nil {
		return "", fmt.Errorf("deleting article %s: %w", id, adminError(err))
	}
	if !resp.Success {
		return "", fmt.Errorf("deleting article %s: %w: %s", id, ErrNetwork, resp.reason())
	}
	return resp.Message, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id article.ID, upd ArticleUpdate) (*article.Article, error) {
	id, err := article.Parse(string(id))
	if err != nil {
		return nil, err
	}
	var resp mutationResponse
	if err := c.do(ctx, http.MethodPut, "/api/update_article/"+url.PathEscape(string(id)), upd, &resp, authRequired); err != nil {
		return nil, fmt.Errorf("updating article %s: %w", id, adminError(err))
	}
	if !resp.Success {
		return nil, fmt.Errorf("updating article %s: %w: %s", id, ErrNetwork, resp.reason())
	}
	return resp.Article, nil
}

func (r mutationResponse) reason() string {
	for _, s := range []string{r.Error, r.Message, r.Msg} {
		if s != "" {
			return s
		}
	}
	return "request failed"
}

// adminError turns a credential rejection on an admin call into
// ErrSessionExpired. A missing local token stays ErrAuth.
func adminError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && errors.Is(se.kind, ErrAuth) {
		se.kind = ErrSessionExpired
	}
	return err
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, out any, auth authMode) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxInterval = 8 * c.retryWait
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, nil, out, auth)
		if err == nil {
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.log.Debug("retrying request",
			zap.String("path", logger.SanitizePath(path)),
			zap.Int("attempt", attempt),
			zap.String("error", logger.SanitizeError(err)))
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx))
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return errors.Is(err, ErrNetwork)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth authMode) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if auth != authNone {
		token := ""
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" && auth == authRequired {
			return ErrAuth
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, logger.SanitizePath(path), ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return newStatusError(resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w: %w", logger.SanitizePath(path), ErrNetwork, err)
	}
	return nil
}

func newStatusError(code int, body []byte) *StatusError {
	se := &StatusError{Code: code, Message: errorMessage(body)}
	switch code {
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		se.kind = ErrAuth
	case http.StatusForbidden:
		se.kind = ErrPermission
	default:
		se.kind = ErrNetwork
	}
	return se
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, s := range []string{payload.Error, payload.Message, payload.Msg} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}
