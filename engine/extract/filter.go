package extract

import (
	"strings"

	"github.com/pairents/edge/engine/text"
)

// minParagraphChars drops crumbs like bylines and share buttons.
const minParagraphChars = 50

var boilerplatePhrases = []string{
	"privacy policy",
	"cookie",
	"terms of service",
	"terms and conditions",
	"all rights reserved",
	"subscribe to our",
	"sign up for our",
	"newsletter",
	"follow us on",
}

// navCues are labels common to site chrome. A paragraph whose tokens hit
// four or more of them is navigation, not prose.
var navCues = map[string]struct{}{
	"home": {}, "about": {}, "blog": {}, "contact": {}, "login": {},
	"signup": {}, "pricing": {}, "faq": {}, "careers": {}, "support": {},
	"features": {}, "download": {}, "menu": {}, "search": {},
}

const maxNavCueHits = 4

// filterParagraphs keeps only real article prose: cleaned, deduplicated,
// long enough, and free of boilerplate and navigation chrome.
func filterParagraphs(paras []string) []string {
	cleaned := make([]string, 0, len(paras))
	for _, p := range paras {
		cleaned = append(cleaned, text.Clean(p))
	}
	cleaned = text.DedupeParagraphs(cleaned)

	out := cleaned[:0]
	for _, p := range cleaned {
		if len([]rune(p)) < minParagraphChars {
			continue
		}
		if isBoilerplate(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func isBoilerplate(p string) bool {
	lower := strings.ToLower(p)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	hits := 0
	for _, tok := range text.UniqueTokens(p) {
		if _, nav := navCues[tok]; nav {
			hits++
			if hits >= maxNavCueHits {
				return true
			}
		}
	}
	return false
}
