// Package feed turns one page of the blog feed into article summaries.
// It tries syndication parsing first and falls back to scraping HTML
// listing cards when the payload is not a feed.
package feed

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/engine/text"
)

const (
	maxExcerptChars  = 260
	maxKeywords      = 36
	keywordBodyChars = 2500
)

// Parser normalizes feed pages for one source site.
type Parser struct {
	host string
	fp   *gofeed.Parser
}

// NewParser creates a Parser for articles hosted on host.
func NewParser(host string) *Parser {
	return &Parser{host: host, fp: gofeed.NewParser()}
}

// Parse extracts article summaries from one page body. Items whose link
// does not canonicalize to the source site are dropped. An unparseable
// or empty page yields an empty slice, not an error.
func (p *Parser) Parse(body []byte) []domain.ArticleSummary {
	if f, err := p.fp.Parse(bytes.NewReader(body)); err == nil && len(f.Items) > 0 {
		if items := p.fromFeed(f); len(items) > 0 {
			return items
		}
	}
	return p.fromCards(body)
}

func (p *Parser) fromFeed(f *gofeed.Feed) []domain.ArticleSummary {
	out := make([]domain.ArticleSummary, 0, len(f.Items))
	for _, it := range f.Items {
		link, err := domain.CanonicalizeLink(it.Link, p.host)
		if err != nil {
			continue
		}
		raw := it.Content
		if raw == "" {
			raw = it.Description
		}
		plain := text.Clean(raw)
		published := it.Published
		if published == "" && it.PublishedParsed != nil {
			published = it.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, domain.ArticleSummary{
			Title:       text.Clean(it.Title),
			Link:        link,
			PublishedAt: published,
			Excerpt:     text.Truncate(plain, maxExcerptChars),
			ImageURL:    itemImage(it, raw),
			Keywords:    Keywords(it.Categories, it.Title, plain, plain),
		})
	}
	return out
}

// itemImage picks an image for a feed item: media extension, then
// enclosure, then the item-level image, then the first inline img tag.
// Logo assets are skipped at every tier.
func itemImage(it *gofeed.Item, rawHTML string) string {
	for _, ns := range []string{"media"} {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ex := range it.Extensions[ns][key] {
				if u := ex.Attrs["url"]; usable(u) {
					return u
				}
			}
		}
	}
	for _, enc := range it.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && usable(enc.URL) {
			return enc.URL
		}
	}
	if it.Image != nil && usable(it.Image.URL) {
		return it.Image.URL
	}
	return inlineImage(rawHTML)
}

func inlineImage(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if usable(src) {
			found = src
			return false
		}
		return true
	})
	return found
}

func usable(u string) bool {
	if u == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(u), "logo")
}

// fromCards scrapes listing cards out of an HTML page. Each anchor into
// /blog/ becomes one summary; nested card markup supplies title, excerpt,
// timestamp and image when present.
func (p *Parser) fromCards(body []byte) []domain.ArticleSummary {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []domain.ArticleSummary
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "/blog/") {
			href = "https://" + p.host + href
		}
		link, err := domain.CanonicalizeLink(href, p.host)
		if err != nil {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		card := a.Closest("article, li, div")
		title := text.Clean(firstText(card, "h1, h2, h3, h4"))
		if title == "" {
			title = text.Clean(a.Text())
		}
		if title == "" {
			return
		}
		excerptRaw := text.Clean(firstText(card, "p"))
		published, _ := card.Find("time").Attr("datetime")
		if published == "" {
			published = text.Clean(card.Find("time").First().Text())
		}
		var image string
		card.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if usable(src) {
				image = src
				return false
			}
			return true
		})
		out = append(out, domain.ArticleSummary{
			Title:       title,
			Link:        link,
			PublishedAt: published,
			Excerpt:     text.Truncate(excerptRaw, maxExcerptChars),
			ImageURL:    image,
			Keywords:    Keywords(nil, title, excerptRaw, excerptRaw),
		})
	})
	return out
}

func firstText(s *goquery.Selection, selector string) string {
	return s.Find(selector).First().Text()
}

// Keywords builds the search-keyword set for an article from its
// categories, title, excerpt and leading body text, topped up with age
// signals, capped at 36 unique entries.
func Keywords(categories []string, title, excerpt, body string) []string {
	if len([]rune(body)) > keywordBodyChars {
		body = string([]rune(body)[:keywordBodyChars])
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || len(out) >= maxKeywords {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, c := range categories {
		add(c)
		for _, tok := range text.UniqueTokens(c) {
			add(tok)
		}
	}
	for _, tok := range text.UniqueTokens(title) {
		add(tok)
	}
	for _, tok := range text.UniqueTokens(excerpt) {
		add(tok)
	}
	for _, tok := range text.UniqueTokens(body) {
		add(tok)
	}
	for _, sig := range text.AgeSignals(title + " " + excerpt + " " + body) {
		add(sig)
	}
	return out
}
