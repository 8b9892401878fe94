package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheuskafuri/briefly/internal/article"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleArticles() []article.Article {
	return []article.Article{
		{ID: "aaa", Title: "Post A", Author: "Reuters", PublishedDate: "2025-03-03T10:00:00Z",
			Summarization: article.Summarization{Summary: "Sum A", Tags: []string{"Business", "Finance"}}},
		{ID: "bbb", Title: "Post B", Author: "AP", PublishedDate: "2025-03-02T10:00:00Z",
			Summarization: article.Summarization{Summary: "Sum B", Tags: []string{"Technology"}, KeyPoints: []string{"k1", "k2"}}},
		{ID: "ccc", Title: "Post C about AI", Author: "Reuters", PublishedDate: "2025-03-01T10:00:00Z",
			Summarization: article.Summarization{Summary: "Sum C", Tags: []string{"AI", "Technology"}}},
	}
}

func TestLikesRoundTrip(t *testing.T) {
	db := testDB(t)

	sets := []article.LikeSet{
		article.NewLikeSet(),
		article.NewLikeSet("a1"),
		article.NewLikeSet("a1", "a2", "a3"),
	}
	for _, s := range sets {
		if err := db.WriteLikes(s); err != nil {
			t.Fatalf("WriteLikes: %v", err)
		}
		got := db.ReadLikes()
		if !got.Equal(s) {
			t.Errorf("round trip: wrote %v, read %v", s.IDs(), got.IDs())
		}
	}
}

func TestLikesWriteIsIdempotent(t *testing.T) {
	db := testDB(t)
	s := article.NewLikeSet("a1", "a2")

	if err := db.WriteLikes(s); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first := db.ReadLikes()
	if err := db.WriteLikes(s); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second := db.ReadLikes()

	if !first.Equal(second) || !second.Equal(s) {
		t.Errorf("expected equal sets, got %v and %v", first.IDs(), second.IDs())
	}
}

func TestReadLikesMissingIsEmpty(t *testing.T) {
	db := testDB(t)
	if got := db.ReadLikes(); got.Len() != 0 {
		t.Errorf("expected empty set, got %v", got.IDs())
	}
}

func TestReadLikesMalformedIsEmpty(t *testing.T) {
	db := testDB(t)
	for _, bad := range []string{"not json", `{"a":1}`, `[1, 2`, ``} {
		if err := db.setMeta(keyLikes, bad); err != nil {
			t.Fatalf("setMeta: %v", err)
		}
		if got := db.ReadLikes(); got.Len() != 0 {
			t.Errorf("malformed %q: expected empty set, got %v", bad, got.IDs())
		}
	}
}

func TestReadLikesSkipsBogusEntries(t *testing.T) {
	db := testDB(t)
	if err := db.setMeta(keyLikes, `["a1", "undefined", "", "a1", "[object Object]", "a2"]`); err != nil {
		t.Fatalf("setMeta: %v", err)
	}
	got := db.ReadLikes()
	if !got.Equal(article.NewLikeSet("a1", "a2")) {
		t.Errorf("unexpected set %v", got.IDs())
	}
}

func TestApplyLike(t *testing.T) {
	db := testDB(t)
	if err := db.WriteLikes(article.NewLikeSet("a1", "a2")); err != nil {
		t.Fatalf("WriteLikes: %v", err)
	}

	got, err := db.ApplyLike("a3", true)
	if err != nil {
		t.Fatalf("ApplyLike: %v", err)
	}
	want := []article.ID{"a1", "a2", "a3"}
	ids := got.IDs()
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	// Liking again must not duplicate.
	if _, err := db.ApplyLike("a3", true); err != nil {
		t.Fatalf("ApplyLike: %v", err)
	}
	if n := db.ReadLikes().Len(); n != 3 {
		t.Errorf("expected 3 likes, got %d", n)
	}

	if _, err := db.ApplyLike("a1", false); err != nil {
		t.Fatalf("ApplyLike: %v", err)
	}
	if !db.ReadLikes().Equal(article.NewLikeSet("a2", "a3")) {
		t.Errorf("unexpected set %v", db.ReadLikes().IDs())
	}
}

func TestApplyLikeConcurrentDifferentArticles(t *testing.T) {
	db := testDB(t)

	ids := []article.ID{"a1", "a2", "a3", "a4", "a5", "a6"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id article.ID) {
			defer wg.Done()
			if _, err := db.ApplyLike(id, true); err != nil {
				t.Errorf("ApplyLike(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if got := db.ReadLikes(); got.Len() != len(ids) {
		t.Errorf("expected %d likes, got %v", len(ids), got.IDs())
	}
}

func TestApplyLikeAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	var handles []*Cache
	for range 2 {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("opening shared db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		handles = append(handles, db)
	}

	const perHandle = 50
	var wg sync.WaitGroup
	for i, db := range handles {
		wg.Add(1)
		go func(i int, db *Cache) {
			defer wg.Done()
			for j := range perHandle {
				id := article.ID(fmt.Sprintf("p%d-%d", i, j))
				if _, err := db.ApplyLike(id, true); err != nil {
					t.Errorf("ApplyLike(%s): %v", id, err)
					return
				}
			}
		}(i, db)
	}
	wg.Wait()

	if got := handles[0].ReadLikes(); got.Len() != 2*perHandle {
		t.Errorf("expected %d likes, got %d", 2*perHandle, got.Len())
	}
	rev, err := handles[1].LikesRevision()
	if err != nil {
		t.Fatalf("LikesRevision: %v", err)
	}
	if rev.Seq != 2*perHandle {
		t.Errorf("expected revision %d, got %d", 2*perHandle, rev.Seq)
	}
}

func TestLikesRevision(t *testing.T) {
	db := testDB(t)

	rev, err := db.LikesRevision()
	if err != nil {
		t.Fatalf("LikesRevision: %v", err)
	}
	if rev.Seq != 0 {
		t.Errorf("expected revision 0 on empty cache, got %d", rev.Seq)
	}

	db.WriteLikes(article.NewLikeSet("a1"))
	db.ApplyLike("a2", true)
	db.ClearLikes()

	rev, err = db.LikesRevision()
	if err != nil {
		t.Fatalf("LikesRevision: %v", err)
	}
	if rev.Seq != 3 {
		t.Errorf("expected revision 3, got %d", rev.Seq)
	}
	if rev.Origin != db.Origin() {
		t.Errorf("expected origin %q, got %q", db.Origin(), rev.Origin)
	}
}

func TestClearLikes(t *testing.T) {
	db := testDB(t)
	db.WriteLikes(article.NewLikeSet("a1"))
	if err := db.ClearLikes(); err != nil {
		t.Fatalf("ClearLikes: %v", err)
	}
	if got := db.ReadLikes(); got.Len() != 0 {
		t.Errorf("expected empty set after clear, got %v", got.IDs())
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)

	if db.LoadSession().Authenticated() {
		t.Error("expected signed-out session on empty cache")
	}

	s := Session{Token: "tok", UserID: "u1", Role: "admin"}
	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	db.WriteLikes(article.NewLikeSet("a1"))

	got := db.LoadSession()
	if got != s {
		t.Errorf("LoadSession = %+v, want %+v", got, s)
	}
	if db.Token() != "tok" {
		t.Errorf("Token = %q", db.Token())
	}

	if err := db.ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	got = db.LoadSession()
	if got.Token != "" || got.UserID != "u1" {
		t.Errorf("ClearToken should only drop the token, got %+v", got)
	}

	if err := db.ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if got := db.LoadSession(); got != (Session{}) {
		t.Errorf("expected empty session after logout, got %+v", got)
	}
	if db.ReadLikes().Len() != 0 {
		t.Error("expected like-set cleared on logout")
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	// Should be ordered by published date DESC
	if got[0].ID != "aaa" {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
	if len(got[1].Summarization.KeyPoints) != 2 {
		t.Errorf("expected key points to survive, got %v", got[1].Summarization.KeyPoints)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	articles := sampleArticles()

	if err := db.UpsertArticles(articles); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	articles[0].Title = "Updated Post A"
	if err := db.UpsertArticles(articles[:1]); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles after upsert, got %d", len(got))
	}
	if got[0].Title != "Updated Post A" {
		t.Errorf("expected updated title, got %q", got[0].Title)
	}
}

func TestQueryTags(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Tags: []string{"Technology"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 Technology articles, got %d", len(got))
	}
}

func TestQueryTitleAndAuthor(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Title: "AI", Author: "Reuters"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ccc" {
		t.Errorf("expected only ccc, got %+v", got)
	}
}

func TestQueryLimit(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 article with limit, got %d", len(got))
	}
}

func TestGetArticlesByIDsKeepsOrder(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticlesByIDs([]article.ID{"ccc", "missing", "aaa"})
	if err != nil {
		t.Fatalf("GetArticlesByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ccc" || got[1].ID != "aaa" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestNeedsRefresh(t *testing.T) {
	db := testDB(t)

	// No last_refresh set, should need refresh
	if !db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=true when no last_refresh set")
	}

	if err := db.SetLastRefresh(); err != nil {
		t.Fatalf("SetLastRefresh: %v", err)
	}

	if db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=false right after SetLastRefresh")
	}

	// With zero interval, should always need refresh
	if !db.NeedsRefresh(0) {
		t.Error("expected NeedsRefresh=true with zero interval")
	}
}

func TestPruneKeepsLikedArticles(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	db.WriteLikes(article.NewLikeSet("bbb"))

	// Negative retention puts the cutoff in the future, so everything is old.
	deleted, err := db.Prune(-time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 pruned, got %d", deleted)
	}

	got, _ := db.GetArticles(QueryOpts{})
	if len(got) != 1 || got[0].ID != "bbb" {
		t.Errorf("expected only liked article to remain, got %+v", got)
	}
}

func TestPruneNothingToDelete(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := db.Prune(365 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 pruned, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	count, size, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestTwoHandlesShareLikes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	if _, err := a.ApplyLike("a1", true); err != nil {
		t.Fatalf("ApplyLike: %v", err)
	}
	if !b.ReadLikes().Contains("a1") {
		t.Error("second handle should see the like written by the first")
	}
	rev, _ := b.LikesRevision()
	if rev.Origin != a.Origin() || rev.Origin == b.Origin() {
		t.Errorf("expected origin of writer a, got %q", rev.Origin)
	}
}
