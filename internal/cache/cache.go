package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheuskafuri/briefly/internal/article"
	_ "modernc.org/sqlite"
)

const (
	keyLikes         = "liked_article_ids"
	keyLikesRevision = "likes_revision"
	keyLikesOrigin   = "likes_origin"
	keyToken         = "auth_token"
	keyUserID        = "user_id"
	keyRole          = "user_role"
	keyLastRefresh   = "last_refresh"
)

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
	path    string
	origin  string
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	// WAL lets readers in this and other processes run alongside the writer.
	// Immediate transactions take the write lock at BEGIN, where busy_timeout
	// applies, so writers in other processes wait instead of failing.
	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	c := &Cache{readDB: readDB, writeDB: writeDB, path: dbPath, origin: uuid.NewString()}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			author         TEXT NOT NULL DEFAULT '',
			published_date TEXT NOT NULL DEFAULT '',
			url            TEXT NOT NULL DEFAULT '',
			img            TEXT NOT NULL DEFAULT '',
			summary        TEXT NOT NULL DEFAULT '',
			key_points     TEXT NOT NULL DEFAULT '[]',
			tags           TEXT NOT NULL DEFAULT '[]',
			fetched_at     DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at DESC);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Path is the database file backing the cache.
func (c *Cache) Path() string { return c.path }

// Origin identifies this process in like-slot revisions.
func (c *Cache) Origin() string { return c.origin }

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// --- like-set slot ---

// ReadLikes returns the cached like-set. A missing, unreadable or malformed
// slot reads as the empty set.
func (c *Cache) ReadLikes() article.LikeSet {
	value, err := c.getMeta(keyLikes)
	if err != nil {
		return article.LikeSet{}
	}
	return decodeLikes(value)
}

func decodeLikes(value string) article.LikeSet {
	var raw []string
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return article.LikeSet{}
	}
	var s article.LikeSet
	for _, r := range raw {
		if article.Check("article id", r) != nil {
			continue
		}
		s.Add(article.Canonical(r))
	}
	return s
}

// WriteLikes replaces the cached like-set.
func (c *Cache) WriteLikes(s article.LikeSet) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding likes: %w", err)
	}
	return c.inTx(func(tx *sql.Tx) error {
		if err := setMetaTx(tx, keyLikes, string(data)); err != nil {
			return err
		}
		return c.bumpRevision(tx)
	})
}

// ApplyLike sets one article's membership in the cached like-set and returns
// the resulting set. The read and write share a transaction.
func (c *Cache) ApplyLike(id article.ID, liked bool) (article.LikeSet, error) {
	var out article.LikeSet
	err := c.inTx(func(tx *sql.Tx) error {
		var value string
		err := tx.QueryRow("SELECT value FROM meta WHERE key = ?", keyLikes).Scan(&value)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		s := decodeLikes(value)
		s.Set(id, liked)

		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding likes: %w", err)
		}
		if err := setMetaTx(tx, keyLikes, string(data)); err != nil {
			return err
		}
		out = s
		return c.bumpRevision(tx)
	})
	if err != nil {
		return article.LikeSet{}, fmt.Errorf("applying like for %s: %w", id, err)
	}
	return out, nil
}

func (c *Cache) ClearLikes() error {
	return c.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM meta WHERE key = ?", keyLikes); err != nil {
			return err
		}
		return c.bumpRevision(tx)
	})
}

// LikesRevision reports the sequence number and writer of the last like-slot
// write. A cache that was never written has revision zero.
func (c *Cache) LikesRevision() (Revision, error) {
	var rev Revision
	seq, err := c.getMeta(keyLikesRevision)
	if errors.Is(err, sql.ErrNoRows) {
		return rev, nil
	}
	if err != nil {
		return rev, err
	}
	if _, err := fmt.Sscanf(seq, "%d", &rev.Seq); err != nil {
		return rev, fmt.Errorf("parsing likes revision %q: %w", seq, err)
	}
	rev.Origin, _ = c.getMeta(keyLikesOrigin)
	return rev, nil
}

func (c *Cache) bumpRevision(tx *sql.Tx) error {
	_, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, '1')
		ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)
	`, keyLikesRevision)
	if err != nil {
		return fmt.Errorf("bumping likes revision: %w", err)
	}
	return setMetaTx(tx, keyLikesOrigin, c.origin)
}

// --- session slots ---

func (c *Cache) SaveSession(s Session) error {
	return c.inTx(func(tx *sql.Tx) error {
		for key, value := range map[string]string{keyToken: s.Token, keyUserID: s.UserID, keyRole: s.Role} {
			if err := setMetaTx(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSession returns the persisted session; the zero Session means signed out.
func (c *Cache) LoadSession() Session {
	var s Session
	s.Token, _ = c.getMeta(keyToken)
	s.UserID, _ = c.getMeta(keyUserID)
	s.Role, _ = c.getMeta(keyRole)
	return s
}

// Token satisfies remote.TokenSource.
func (c *Cache) Token() string {
	token, _ := c.getMeta(keyToken)
	return token
}

// ClearToken forgets the access token but keeps the rest of the session.
func (c *Cache) ClearToken() error {
	_, err := c.writeDB.Exec("DELETE FROM meta WHERE key = ?", keyToken)
	return err
}

// ClearSession removes the token, user id, role and like-set together.
func (c *Cache) ClearSession() error {
	return c.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM meta WHERE key IN (?, ?, ?, ?)", keyToken, keyUserID, keyRole, keyLikes)
		if err != nil {
			return err
		}
		return c.bumpRevision(tx)
	})
}

// --- article store ---

func (c *Cache) UpsertArticles(articles []article.Article) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (id, title, author, published_date, url, img, summary, key_points, tags, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			published_date = excluded.published_date,
			url = excluded.url,
			img = excluded.img,
			summary = excluded.summary,
			key_points = excluded.key_points,
			tags = excluded.tags,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		keyPoints, _ := json.Marshal(nonNil(a.Summarization.KeyPoints))
		tags, _ := json.Marshal(nonNil(a.Summarization.Tags))
		_, err := stmt.Exec(string(a.ID), a.Title, a.Author, a.PublishedDate, a.URL, a.Img,
			a.Summarization.Summary, string(keyPoints), string(tags), now)
		if err != nil {
			return fmt.Errorf("upserting article %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

const articleColumns = "id, title, author, published_date, url, img, summary, key_points, tags, fetched_at"

func (c *Cache) GetArticles(opts QueryOpts) ([]Stored, error) {
	var (
		where []string
		args  []interface{}
	)

	for _, tag := range opts.Tags {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(articles.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}

	if opts.Title != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+opts.Title+"%")
	}

	if opts.Author != "" {
		where = append(where, "author LIKE ?")
		args = append(args, "%"+opts.Author+"%")
	}

	query := "SELECT " + articleColumns + " FROM articles"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published_date DESC, fetched_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	return c.queryArticles(query, args...)
}

// GetArticlesByIDs returns the stored articles among ids, in the order of ids.
func (c *Cache) GetArticlesByIDs(ids []article.ID) ([]Stored, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = string(id)
	}
	query := "SELECT " + articleColumns + " FROM articles WHERE id IN (" + strings.Join(placeholders, ",") + ")" //nolint:gosec
	found, err := c.queryArticles(query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[article.ID]Stored, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]Stored, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Cache) queryArticles(query string, args ...interface{}) ([]Stored, error) {
	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []Stored
	for rows.Next() {
		var (
			s         Stored
			id        string
			keyPoints string
			tags      string
		)
		if err := rows.Scan(&id, &s.Title, &s.Author, &s.PublishedDate, &s.URL, &s.Img,
			&s.Summarization.Summary, &keyPoints, &tags, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		s.ID = article.ID(id)
		json.Unmarshal([]byte(keyPoints), &s.Summarization.KeyPoints)
		json.Unmarshal([]byte(tags), &s.Summarization.Tags)
		articles = append(articles, s)
	}
	return articles, rows.Err()
}

// DeleteArticle drops an article from the local store.
func (c *Cache) DeleteArticle(id article.ID) error {
	_, err := c.writeDB.Exec("DELETE FROM articles WHERE id = ?", string(id))
	return err
}

// Prune deletes articles fetched longer ago than olderThan. Articles in the
// cached like-set are kept so the liked view keeps working offline.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := c.writeDB.Exec(`
		DELETE FROM articles
		WHERE fetched_at < ?
		AND id NOT IN (
			SELECT value FROM json_each((SELECT value FROM meta WHERE key = ?))
		)
	`, cutoff, keyLikes)
	if err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns the number of stored articles and the database file size.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	var count int
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, 0, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, err
	}
	return count, info.Size(), nil
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	value, err := c.getMeta(keyLastRefresh)
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta(keyLastRefresh, time.Now().Format(time.RFC3339))
}

// --- helpers ---

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func setMetaTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (c *Cache) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
