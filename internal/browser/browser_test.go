package browser

import (
	"testing"

	"github.com/matheuskafuri/briefly/internal/article"
)

func stubLauncher(t *testing.T) *[]string {
	t.Helper()
	var opened []string
	prev := Launcher
	Launcher = func(u string) error {
		opened = append(opened, u)
		return nil
	}
	t.Cleanup(func() { Launcher = prev })
	return &opened
}

func TestOpenRejectsNonHTTP(t *testing.T) {
	opened := stubLauncher(t)

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com", false},
		{"http://example.com", false},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"ftp://example.com", true},
		{"https://", true},
		{"", true},
	}

	for _, tt := range tests {
		err := Open(tt.url)
		if tt.wantErr && err == nil {
			t.Errorf("Open(%q): expected error, got nil", tt.url)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Open(%q): unexpected error %v", tt.url, err)
		}
	}
	if len(*opened) != 2 {
		t.Errorf("expected only valid URLs launched, got %v", *opened)
	}
}

func TestArticleURL(t *testing.T) {
	tests := []struct {
		name    string
		a       article.Article
		site    string
		want    string
		wantErr bool
	}{
		{"source url", article.Article{ID: "a1", URL: "https://news.example/x"}, "https://briefly.example", "https://news.example/x", false},
		{"site fallback", article.Article{ID: "a1"}, "https://briefly.example/", "https://briefly.example/article/a1", false},
		{"no link", article.Article{ID: "a1"}, "", "", true},
		{"bad source", article.Article{ID: "a1", URL: "javascript:void(0)"}, "", "javascript:void(0)", true},
	}
	for _, tt := range tests {
		got, err := ArticleURL(tt.a, tt.site)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOpenArticle(t *testing.T) {
	opened := stubLauncher(t)
	if err := OpenArticle(article.Article{ID: "a7"}, "https://briefly.example"); err != nil {
		t.Fatalf("OpenArticle: %v", err)
	}
	if len(*opened) != 1 || (*opened)[0] != "https://briefly.example/article/a7" {
		t.Errorf("unexpected launches %v", *opened)
	}
}
