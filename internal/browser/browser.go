// Package browser opens article links in the user's web browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/matheuskafuri/briefly/internal/article"
)

// Launcher starts the platform browser for a validated URL. Tests replace it.
var Launcher = launch

func Open(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	return Launcher(rawURL)
}

// Validate accepts only absolute http and https URLs.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return nil
}

// ArticleURL is the link to open for a: the source URL, or the article's
// page on site when the source is unknown.
func ArticleURL(a article.Article, site string) (string, error) {
	if a.URL != "" {
		return a.URL, Validate(a.URL)
	}
	if site == "" {
		return "", fmt.Errorf("article %s has no link", a.ID)
	}
	link := strings.TrimRight(site, "/") + "/article/" + url.PathEscape(string(a.ID))
	return link, Validate(link)
}

func OpenArticle(a article.Article, site string) error {
	link, err := ArticleURL(a, site)
	if err != nil {
		return err
	}
	return Launcher(link)
}

func launch(rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		// rundll32 avoids cmd's shell interpretation of the URL
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
