package feed

import "strings"

// Excerpt is a one-line, tag-free rendering of s of at most n runes.
func Excerpt(s string, n int) string {
	return Truncate(StripHTML(s), n)
}

func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// StripHTML drops markup and collapses whitespace. Summaries produced by the
// API occasionally carry inline HTML.
func StripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
