// Package text holds the plain-text utilities shared by the feed
// normalizer, the article extractor, and the guidance prompt builder.
package text

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean strips markup and entities from s and collapses whitespace.
func Clean(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Escape HTML-escapes s for safe embedding in generated markup.
func Escape(s string) string {
	return html.EscapeString(s)
}

// DedupeParagraphs drops empty paragraphs and repeats while preserving
// first-seen order. Matching is case-insensitive; the first casing wins.
func DedupeParagraphs(paras []string) []string {
	seen := make(map[string]struct{}, len(paras))
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Truncate shortens s to at most max runes including the appended
// ellipsis, cutting at a word boundary when one is close.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max-1])
	if i := strings.LastIndex(cut, " "); i > max*3/4 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}

// SplitSentences breaks s on sentence-ending punctuation. It is the
// last-resort paragraphizer for pages with no recoverable structure.
func SplitSentences(s string) []string {
	var out []string
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if sent := strings.TrimSpace(b.String()); sent != "" {
				out = append(out, sent)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
