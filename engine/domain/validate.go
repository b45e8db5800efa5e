package domain

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// maxGuidanceInputRunes caps the free-text portion of a guidance request.
const maxGuidanceInputRunes = 2000

// injectionPhrases are instruction-override markers. Matching is
// case-insensitive substring search over the raw input. Medical or
// emotionally charged content is NOT rejected here; it is handled
// downstream by answer post-processing.
var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"disregard previous instructions",
	"disregard your instructions",
	"forget your instructions",
	"system prompt",
	"you are now",
	"act as if",
	"pretend you are",
	"override your",
	"jailbreak",
	"developer mode",
}

// CanonicalizeLink validates and normalizes an article link. The result is
// an absolute http(s) URL on host (www. prefix tolerated) with a /blog/
// path, query and fragment stripped. Every cache key and fetch derives
// from the canonical form so equivalent spellings share one entry.
func CanonicalizeLink(raw, host string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", NewValidationError("link", raw, ErrNotFound)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", NewValidationError("link", raw, ErrNotFound)
	}
	h := strings.ToLower(u.Hostname())
	want := strings.ToLower(host)
	if h != want && h != "www."+want && "www."+h != want {
		return "", NewValidationError("link", raw, ErrNotFound)
	}
	if !strings.HasPrefix(u.Path, "/blog/") {
		return "", NewValidationError("link", raw, ErrNotFound)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// BlogID extracts the article slug from a canonical link, the second
// path segment under /blog/. Returns "" when the path has no slug.
func BlogID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "blog" {
		return ""
	}
	return parts[1]
}

// CheckGuidanceInput enforces the guidance input policy: a non-empty text
// within the rune ceiling and free of instruction-override phrases.
func CheckGuidanceInput(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NewValidationError("text", "", ErrPolicyViolation)
	}
	if utf8.RuneCountInString(text) > maxGuidanceInputRunes {
		return NewValidationError("text", "too long", ErrPolicyViolation)
	}
	lower := strings.ToLower(text)
	for _, phrase := range injectionPhrases {
		if strings.Contains(lower, phrase) {
			return NewValidationError("text", phrase, ErrPolicyViolation)
		}
	}
	return nil
}
