package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/engine/text"
)

// Field weights for the keyword scorer.
const (
	weightTitle   = 6
	weightKeyword = 5
	weightExcerpt = 3
	weightLink    = 1
)

// Search ranks the catalog against query. An empty query returns the
// catalog in its natural recency order. Otherwise each query token scores
// weighted field matches per item; zero-score items are dropped and ties
// keep the catalog's recency order.
func (s *Service) Search(ctx context.Context, query string) ([]domain.ArticleSummary, error) {
	items, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	tokens := text.Tokenize(query)
	if len(tokens) == 0 {
		return items, nil
	}

	type scored struct {
		item  domain.ArticleSummary
		score int
	}
	matches := make([]scored, 0, len(items))
	for _, it := range items {
		if sc := score(it, tokens); sc > 0 {
			matches = append(matches, scored{item: it, score: sc})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	out := make([]domain.ArticleSummary, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out, nil
}

func score(it domain.ArticleSummary, tokens []string) int {
	title := strings.ToLower(it.Title)
	excerpt := strings.ToLower(it.Excerpt)
	link := strings.ToLower(it.Link)

	total := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			total += weightTitle
		}
		for _, kw := range it.Keywords {
			if strings.Contains(kw, tok) {
				total += weightKeyword
				break
			}
		}
		if strings.Contains(excerpt, tok) {
			total += weightExcerpt
		}
		if strings.Contains(link, tok) {
			total += weightLink
		}
	}
	return total
}
