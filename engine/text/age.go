package text

import (
	"fmt"
	"regexp"
	"strings"
)

var ageRe = regexp.MustCompile(`(?i)\b(\d{1,2})[ -](month|year)s?[ -]old\b|\b(\d{1,2})\s+(month|year)s?\b`)

var stageWords = []string{
	"newborn", "infant", "baby", "toddler", "preschool", "preschooler",
	"kindergarten",
}

// AgeSignals pulls child-age markers out of s, numeric spans like
// "18 months" or "2-year-old" plus developmental stage words. They feed
// article keywords so age-specific searches rank the right content.
func AgeSignals(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(sig string) {
		if _, dup := seen[sig]; dup {
			return
		}
		seen[sig] = struct{}{}
		out = append(out, sig)
	}

	for _, m := range ageRe.FindAllStringSubmatch(s, -1) {
		num, unit := m[1], m[2]
		if num == "" {
			num, unit = m[3], m[4]
		}
		add(fmt.Sprintf("%s %ss", num, strings.ToLower(unit)))
	}

	lower := strings.ToLower(s)
	for _, w := range stageWords {
		if strings.Contains(lower, w) {
			add(w)
		}
	}
	return out
}
