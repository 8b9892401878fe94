package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matheuskafuri/briefly/internal/article"
	"github.com/matheuskafuri/briefly/internal/broadcast"
	"github.com/matheuskafuri/briefly/internal/cache"
	"github.com/matheuskafuri/briefly/internal/category"
	"github.com/matheuskafuri/briefly/internal/feed"
	"github.com/matheuskafuri/briefly/internal/likes"
	"github.com/matheuskafuri/briefly/internal/remote"
)

func TestRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-2 * 24 * time.Hour), "2d"},
		{time.Time{}, "undated"},
	}
	for _, tt := range tests {
		got := relativeTime(tt.t)
		if got != tt.want {
			t.Errorf("relativeTime(%v ago) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
}

func TestRelativeTimeOld(t *testing.T) {
	old := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got := relativeTime(old)
	if got != "Jun 15" {
		t.Errorf("relativeTime(old date) = %q, want %q", got, "Jun 15")
	}
}

func TestFilterBar(t *testing.T) {
	f := newFilterBar(feed.ModePlain, category.All)

	f.nextMode()
	if f.mode != feed.ModePersonalized {
		t.Errorf("mode after next = %q", f.mode)
	}
	f.nextMode()
	f.nextMode()
	if f.mode != feed.ModePlain {
		t.Errorf("modes should wrap, got %q", f.mode)
	}
	if !f.setMode(2) || f.categoryApplies() {
		t.Error("liked view ignores the category")
	}
	if f.setMode(2) || f.setMode(7) {
		t.Error("setMode should report no change")
	}

	f.nextCategory()
	if f.active == category.All || f.filterCursor != f.indexOf(f.active) {
		t.Errorf("nextCategory left %q at cursor %d", f.active, f.filterCursor)
	}

	f.filterCursor = 0
	if !f.selectCurrent() || f.active != category.All {
		t.Errorf("selectCurrent picked %q", f.active)
	}
	if f.selectCurrent() {
		t.Error("selecting the active category is not a change")
	}
}

type fakeFeeds struct{}

func (fakeFeeds) Plain(context.Context, category.Category) (feed.View, error) {
	return feed.View{Mode: feed.ModePlain}, nil
}

func (fakeFeeds) Personalized(context.Context, string, category.Category) (feed.View, error) {
	return feed.View{Mode: feed.ModePersonalized}, nil
}

func (fakeFeeds) Liked(context.Context, string) (feed.View, error) {
	return feed.View{Mode: feed.ModeLiked}, nil
}

// fakeToggler answers with verdict and publishes it the way the coordinator
// does.
type fakeToggler struct {
	bus     *broadcast.Bus
	verdict bool
	err     error
	calls   int
}

func (f *fakeToggler) Toggle(ctx context.Context, userID, rawID string) (likes.Outcome, error) {
	f.calls++
	if f.err != nil {
		return likes.Outcome{}, f.err
	}
	id := article.ID(rawID)
	f.bus.Publish(ctx, broadcast.Change{ArticleID: id, Liked: f.verdict, UserID: userID})
	return likes.Outcome{ArticleID: id, Liked: f.verdict}, nil
}

func (f *fakeToggler) Presume(article.ID) bool { return true }
func (f *fakeToggler) Pending(article.ID) bool { return false }

type staticLikes struct{ set article.LikeSet }

func (s staticLikes) GetLikeSet(context.Context, string) article.LikeSet { return s.set.Clone() }

func newTestApp(t *testing.T, userID string, tog *fakeToggler) *App {
	t.Helper()
	bus := broadcast.NewBus("test", nil)
	tog.bus = bus
	a := NewApp(RunOpts{
		Feeds:      fakeFeeds{},
		Likes:      tog,
		LikeSource: staticLikes{},
		Bus:        bus,
		Session:    cache.Session{Token: "tok", UserID: userID},
		Mode:       feed.ModePlain,
		Category:   category.All,
		Relayed:    true,
	})
	t.Cleanup(a.Close)

	a.seq = 1
	a.Update(viewLoadedMsg{seq: 1, view: feed.View{
		Mode: feed.ModePlain,
		Articles: []article.Article{
			{ID: "a1", Title: "Chip exports"},
			{ID: "a2", Title: "Rain delays match"},
		},
	}})
	return a
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestToggleSpeculatesThenTakesVerdict(t *testing.T) {
	tog := &fakeToggler{verdict: false}
	a := newTestApp(t, "u1", tog)

	_, cmd := a.Update(key("l"))
	if cmd == nil {
		t.Fatal("expected a toggle command")
	}
	if !a.list.Liked("a1") || !a.preview.Liked("a1") {
		t.Error("both surfaces should show the presumed state while the toggle runs")
	}

	a.Update(cmd())
	if tog.calls != 1 {
		t.Fatalf("expected one toggle, got %d", tog.calls)
	}
	if a.list.Liked("a1") || a.preview.Liked("a1") {
		t.Error("the server's verdict must replace the speculation")
	}
	if a.err != nil {
		t.Errorf("unexpected error %v", a.err)
	}
}

func TestToggleFailureSettles(t *testing.T) {
	tog := &fakeToggler{err: errors.New("toggle: network error")}
	a := newTestApp(t, "u1", tog)

	_, cmd := a.Update(key("l"))
	a.Update(cmd())
	if a.list.Liked("a1") || a.preview.Liked("a1") {
		t.Error("a failed toggle must leave the confirmed state")
	}
	if a.err == nil {
		t.Error("expected the failure to be shown")
	}
}

func TestLikeRequiresLogin(t *testing.T) {
	tog := &fakeToggler{}
	a := newTestApp(t, "", tog)

	_, cmd := a.Update(key("l"))
	if cmd != nil || tog.calls != 0 {
		t.Error("signed-out like must not reach the API")
	}
	if !errors.Is(a.err, remote.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", a.err)
	}
	if !strings.Contains(remote.Describe(a.err), "log in") {
		t.Errorf("unexpected message %q", remote.Describe(a.err))
	}
}

func TestChangesFromElsewhereReachBothSurfaces(t *testing.T) {
	a := newTestApp(t, "u1", &fakeToggler{})

	a.opts.Bus.Deliver(broadcast.Change{ArticleID: "a2", Liked: true, UserID: "u1", Origin: "other"})
	if !a.list.Liked("a2") || !a.preview.Liked("a2") {
		t.Error("a change published elsewhere should show on both surfaces")
	}
	select {
	case <-a.updates:
	default:
		t.Error("expected an update signal")
	}
}

func TestStaleLoadIsDropped(t *testing.T) {
	a := newTestApp(t, "u1", &fakeToggler{})

	a.Update(key("m"))
	a.Update(viewLoadedMsg{seq: a.seq - 1, view: feed.View{Articles: []article.Article{{ID: "old"}}}})
	if len(a.articles) != 2 {
		t.Errorf("superseded load replaced the list: %v", a.articles)
	}
	if !a.loading {
		t.Error("the current load is still running")
	}
}

func TestSearchNarrowsTitles(t *testing.T) {
	a := newTestApp(t, "u1", &fakeToggler{})

	a.Update(key("/"))
	a.Update(key("rain"))
	if len(a.articles) != 1 || a.articles[0].ID != "a2" {
		t.Fatalf("unexpected search result %v", a.articles)
	}
	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if len(a.articles) != 2 {
		t.Error("esc should clear the search")
	}
}

func TestUnlikeInLikedViewRemovesRow(t *testing.T) {
	a := newTestApp(t, "u1", &fakeToggler{})
	a.view.Mode = feed.ModeLiked

	a.Update(toggleDoneMsg{id: "a1", outcome: likes.Outcome{ArticleID: "a1", Liked: false}})
	if len(a.articles) != 1 || a.articles[0].ID != "a2" {
		t.Errorf("unliked article should leave the liked view, got %v", a.articles)
	}
}

func TestRenderListShowsLikes(t *testing.T) {
	arts := []article.Article{{ID: "a1", Title: "One"}, {ID: "a2", Title: "Two"}}
	out := renderList(arts, func(id article.ID) rowState {
		return rowState{liked: id == "a1"}
	}, 0, 10, 40)
	if strings.Count(out, "♥") != 1 || strings.Count(out, "♡") != 1 {
		t.Errorf("expected one filled and one empty heart:\n%s", out)
	}
}
