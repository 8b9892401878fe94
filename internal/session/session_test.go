package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/remote"
)

type fakeAuth struct {
	resp     remote.LoginResponse
	err      error
	calls    int
	register remote.RegisterRequest
}

func (f *fakeAuth) Login(context.Context, string, string) (remote.LoginResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeAuth) Register(_ context.Context, req remote.RegisterRequest) (string, error) {
	f.calls++
	f.register = req
	return "User registered successfully", f.err
}

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "briefly.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return tok
}

func TestLoginPersistsSessionAndLikes(t *testing.T) {
	c := openCache(t)
	auth := &fakeAuth{resp: remote.LoginResponse{
		AccessToken: "tok", UserID: "u1", UserRole: "user", Likes: []article.ID{"a1", "a2"},
	}}
	m := NewManager(auth, c, nil, nil)

	s, err := m.Login(context.Background(), Credentials{Username: " bob ", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s != (cache.Session{Token: "tok", UserID: "u1", Role: "user"}) {
		t.Errorf("unexpected session %+v", s)
	}
	if m.Current() != s {
		t.Errorf("session not persisted: %+v", m.Current())
	}
	if !c.ReadLikes().Equal(article.NewLikeSet("a1", "a2")) {
		t.Errorf("login likes should seed the cache, got %v", c.ReadLikes().IDs())
	}
}

func TestLoginRecoversUserFromToken(t *testing.T) {
	c := openCache(t)
	tok := signedToken(t, jwt.MapClaims{"sub": "u42", "role": "admin"})
	m := NewManager(&fakeAuth{resp: remote.LoginResponse{AccessToken: tok}}, c, nil, nil)

	s, err := m.Login(context.Background(), Credentials{Username: "root", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.UserID != "u42" || !s.IsAdmin() {
		t.Errorf("expected claims from token, got %+v", s)
	}
}

func TestLoginWithoutUserID(t *testing.T) {
	c := openCache(t)
	m := NewManager(&fakeAuth{resp: remote.LoginResponse{AccessToken: "opaque"}}, c, nil, nil)

	_, err := m.Login(context.Background(), Credentials{Username: "bob", Password: "pw"})
	if !errors.Is(err, remote.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if c.LoadSession().Authenticated() {
		t.Error("no session may be saved")
	}
}

func TestLoginValidation(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(auth, openCache(t), nil, nil)

	_, err := m.Login(context.Background(), Credentials{Username: "  ", Password: "pw"})
	if !errors.Is(err, article.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "username is required") {
		t.Errorf("unexpected message %q", err)
	}
	if auth.calls != 0 {
		t.Error("invalid input must not reach the API")
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
		want string
	}{
		{"short password", Registration{Username: "bob", Password: "short"}, "password must be at least 8"},
		{"bad email", Registration{Username: "bob", Password: "longenough", Email: "nope"}, "valid email"},
		{"bad role", Registration{Username: "bob", Password: "longenough", Role: "root"}, "role must be one of"},
	}
	for _, tt := range tests {
		auth := &fakeAuth{}
		m := NewManager(auth, openCache(t), nil, nil)
		_, err := m.Register(context.Background(), tt.reg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
		if auth.calls != 0 {
			t.Errorf("%s: invalid input must not reach the API", tt.name)
		}
	}
}

func TestRegister(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(auth, openCache(t), nil, nil)

	msg, err := m.Register(context.Background(), Registration{Username: "bob", Password: "longenough", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if msg == "" || auth.register.Email != "bob@example.com" {
		t.Errorf("unexpected register call %+v / %q", auth.register, msg)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	c := openCache(t)
	m := NewManager(&fakeAuth{resp: remote.LoginResponse{AccessToken: "tok", UserID: "u1", Likes: []article.ID{"a1"}}}, c, nil, nil)
	if _, err := m.Login(context.Background(), Credentials{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.Current() != (cache.Session{}) {
		t.Errorf("session should be empty, got %+v", m.Current())
	}
	if c.ReadLikes().Len() != 0 {
		t.Error("like-set should be cleared on logout")
	}
}

type recordingGov struct{ forgot []string }

func (g *recordingGov) Forget(userID string) { g.forgot = append(g.forgot, userID) }

func TestLogoutResetsRefreshState(t *testing.T) {
	c := openCache(t)
	gov := &recordingGov{}
	m := NewManager(&fakeAuth{resp: remote.LoginResponse{AccessToken: "tok", UserID: "u1"}}, c, gov, nil)
	if _, err := m.Login(context.Background(), Credentials{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(gov.forgot) != 1 || gov.forgot[0] != "u1" {
		t.Errorf("forgot = %v, want [u1]", gov.forgot)
	}

	// Signed out already: nothing to forget.
	if err := m.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if len(gov.forgot) != 1 {
		t.Errorf("forgot = %v after signed-out logout", gov.forgot)
	}
}

func TestLoginLikesSeedOnlyWhenSent(t *testing.T) {
	c := openCache(t)
	if err := c.WriteLikes(article.NewLikeSet("a1", "a2")); err != nil {
		t.Fatalf("WriteLikes: %v", err)
	}

	auth := &fakeAuth{resp: remote.LoginResponse{AccessToken: "tok", UserID: "u1"}}
	m := NewManager(auth, c, nil, nil)
	if _, err := m.Login(context.Background(), Credentials{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := c.ReadLikes(); !got.Equal(article.NewLikeSet("a1", "a2")) {
		t.Errorf("likes without a likes field = %v, want unchanged", got.IDs())
	}

	auth.resp.Likes = []article.ID{}
	if _, err := m.Login(context.Background(), Credentials{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := c.ReadLikes(); got.Len() != 0 {
		t.Errorf("likes after an empty likes field = %v, want none", got.IDs())
	}
}
