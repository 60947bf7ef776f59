package providers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips HTML markup and entities from a provider field and
// collapses whitespace. Several providers highlight matches with <b> or
// <strong> tags inside snippets.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// FirstNonEmpty returns the first candidate that is non-empty after cleaning.
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if v := CleanText(c); v != "" {
			return v
		}
	}
	return ""
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
