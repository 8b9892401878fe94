// Package session signs users in and out and keeps the persisted session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/logger"
	"github.com/matheuskafuri/briefly/internal/remote"
	"go.uber.org/zap"
)

var validate = validator.New()

type Credentials struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=256"`
}

type Registration struct {
	Username string `validate:"required,min=3,max=64"`
	Password string `validate:"required,min=8,max=256"`
	Email    string `validate:"omitempty,email"`
	Role     string `validate:"omitempty,oneof=user admin"`
}

type Auth interface {
	Login(ctx context.Context, username, password string) (remote.LoginResponse, error)
	Register(ctx context.Context, req remote.RegisterRequest) (string, error)
}

type Store interface {
	SaveSession(cache.Session) error
	LoadSession() cache.Session
	ClearSession() error
	WriteLikes(article.LikeSet) error
}

// Forgetter drops per-user refresh bookkeeping.
type Forgetter interface {
	Forget(userID string)
}

type Manager struct {
	auth  Auth
	store Store
	gov   Forgetter
	log   *zap.Logger
}

// NewManager builds a session manager. gov may be nil.
func NewManager(auth Auth, store Store, gov Forgetter, log *zap.Logger) *Manager {
	return &Manager{auth: auth, store: store, gov: gov, log: logger.OrNop(log).Named("session")}
}

// Current returns the persisted session; the zero value means signed out.
func (m *Manager) Current() cache.Session {
	return m.store.LoadSession()
}

// Login signs in and persists the session. A like-set returned with the
// login replaces the cached one; a response without one leaves it alone.
func (m *Manager) Login(ctx context.Context, creds Credentials) (cache.Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := check(creds); err != nil {
		return cache.Session{}, err
	}

	resp, err := m.auth.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return cache.Session{}, err
	}

	s := cache.Session{Token: resp.AccessToken, UserID: resp.UserID, Role: resp.UserRole}
	if s.UserID == "" || s.Role == "" {
		sub, role := tokenClaims(resp.AccessToken)
		if s.UserID == "" {
			s.UserID = sub
		}
		if s.Role == "" {
			s.Role = role
		}
	}
	if err := article.Check("user id", s.UserID); err != nil {
		return cache.Session{}, fmt.Errorf("logging in: server sent no usable user id: %w", remote.ErrAuth)
	}

	if err := m.store.SaveSession(s); err != nil {
		return cache.Session{}, fmt.Errorf("saving session: %w", err)
	}
	if resp.Likes != nil {
		if err := m.store.WriteLikes(article.NewLikeSet(resp.Likes...)); err != nil {
			m.log.Warn("seeding like-set", zap.String("error", logger.SanitizeError(err)))
		}
	}

	m.log.Info("signed in", zap.String("user", logger.SanitizeUserID(s.UserID)), zap.String("role", s.Role))
	return s, nil
}

func (m *Manager) Register(ctx context.Context, reg Registration) (string, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := check(reg); err != nil {
		return "", err
	}
	return m.auth.Register(ctx, remote.RegisterRequest{
		Username: reg.Username,
		Password: reg.Password,
		Email:    reg.Email,
		Role:     reg.Role,
	})
}

// Logout forgets the token, user id, role and cached like-set together, and
// resets the user's refresh cooldowns so the next sign-in reads fresh state.
func (m *Manager) Logout() error {
	userID := m.store.LoadSession().UserID
	if err := m.store.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if m.gov != nil && userID != "" {
		m.gov.Forget(userID)
	}
	return nil
}

// tokenClaims reads the subject and role from an access token without
// verifying it; the token is only ever checked by the API.
func tokenClaims(token string) (sub, role string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", ""
	}
	switch v := claims["sub"].(type) {
	case string:
		sub = v
	case float64:
		sub = fmt.Sprintf("%.0f", v)
	}
	if r, ok := claims["role"].(string); ok {
		role = r
	}
	return sub, role
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", article.ErrInvalidArgument, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", article.ErrInvalidArgument, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return field + " is invalid"
}
