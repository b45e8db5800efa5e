package text

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "your": {}, "all": {}, "can": {}, "had": {}, "has": {},
	"have": {}, "was": {}, "one": {}, "our": {}, "out": {}, "with": {},
	"this": {}, "that": {}, "they": {}, "them": {}, "their": {},
	"what": {}, "when": {}, "how": {}, "why": {}, "will": {}, "may": {},
	"from": {}, "about": {}, "into": {}, "more": {}, "some": {},
	"these": {}, "those": {}, "than": {}, "then": {}, "also": {},
	"its": {}, "it's": {}, "here": {}, "there": {}, "over": {},
	"such": {}, "just": {}, "like": {}, "most": {}, "other": {},
	"should": {}, "could": {}, "would": {}, "been": {}, "being": {},
	"does": {}, "did": {}, "each": {}, "every": {}, "very": {},
}

// Tokenize lowercases s, splits on non-alphanumeric runs, and drops
// tokens shorter than three runes along with stop words. Both the
// keyword builder and the search scorer run on its output so scoring
// compares like with like.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// UniqueTokens tokenizes s and removes duplicates, preserving order.
func UniqueTokens(s string) []string {
	toks := Tokenize(s)
	seen := make(map[string]struct{}, len(toks))
	out := toks[:0]
	for _, tok := range toks {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
