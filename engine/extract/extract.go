// Package extract turns an article page into structured body content. It
// prefers machine-readable embeds (JSON-LD, framework hydration state)
// over scraped markup, and degrades to sentence-splitting the visible
// text when a page has no recoverable structure.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pairents/edge/engine/catalog"
	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/engine/feed"
	"github.com/pairents/edge/engine/text"
	"github.com/pairents/edge/pkg/cache"
	"github.com/pairents/edge/pkg/metrics"
)

// contentContainers is the preference order for prose containers when
// scraping markup directly.
var contentContainers = []string{
	"article",
	"main",
	".entry-content",
	".post-content",
	".blog-content",
	`[role="main"]`,
}

// Service fetches and extracts article bodies, cached per link.
type Service struct {
	catalog *catalog.Service
	client  *http.Client
	store   *cache.Store[domain.ArticleBody]
	host    string
	log     *slog.Logger

	extracted *metrics.Counter
	sentences *metrics.Counter
}

// NewService wires an extractor. ttl bounds per-link body reuse.
func NewService(cat *catalog.Service, client *http.Client, host string, ttl time.Duration, log *slog.Logger, reg *metrics.Registry) *Service {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Service{
		catalog:   cat,
		client:    client,
		store:     cache.New[domain.ArticleBody](ttl),
		host:      host,
		log:       log,
		extracted: reg.Counter("articles_extracted_total", "Article bodies extracted."),
		sentences: reg.Counter("articles_sentence_fallback_total", "Bodies recovered by sentence splitting."),
	}
}

// Article returns the extracted body for link. Off-site links are
// rejected with ErrNotFound and never cached. The page is fetched once
// per cache window; concurrent misses share one fetch.
func (s *Service) Article(ctx context.Context, link string) (domain.ArticleBody, error) {
	canonical, err := domain.CanonicalizeLink(link, s.host)
	if err != nil {
		return domain.ArticleBody{}, err
	}
	return s.store.GetOrFill(ctx, canonical, func(ctx context.Context) (domain.ArticleBody, error) {
		return s.extract(ctx, canonical)
	})
}

func (s *Service) extract(ctx context.Context, link string) (domain.ArticleBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return domain.ArticleBody{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.ArticleBody{}, fmt.Errorf("%w: article fetch: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ArticleBody{}, fmt.Errorf("%w: %s", domain.ErrNotFound, link)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ArticleBody{}, fmt.Errorf("%w: article fetch: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ArticleBody{}, fmt.Errorf("%w: %v", domain.ErrMalformedUpstream, err)
	}

	paras := s.bodyParagraphs(doc)
	if len(paras) == 0 {
		s.sentences.Inc()
		paras = filterParagraphs(text.SplitSentences(text.Clean(visibleText(doc))))
	}

	body := s.assemble(ctx, link, doc, paras)
	s.extracted.Inc()
	s.log.Info("article extracted", "link", link, "paragraphs", len(body.Paragraphs))
	return body, nil
}

// bodyParagraphs tries the extraction strategies in order of fidelity:
// JSON-LD embeds, the framework hydration blob, then scraped containers.
func (s *Service) bodyParagraphs(doc *goquery.Document) []string {
	var candidates []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		candidates = append(candidates, walkJSON([]byte(sel.Text()))...)
	})
	if paras := paragraphize(candidates); len(paras) > 0 {
		return paras
	}

	if blob := doc.Find("script#__NEXT_DATA__").First().Text(); blob != "" {
		if paras := paragraphize(walkJSON([]byte(blob))); len(paras) > 0 {
			return paras
		}
	}

	return s.scrapeContainers(doc)
}

// paragraphize splits candidate prose strings into paragraphs and runs
// the shared filter. Strings from JSON embeds often pack the whole
// article into one value separated by blank lines.
func paragraphize(candidates []string) []string {
	var raw []string
	for _, c := range candidates {
		for _, part := range strings.Split(c, "\n\n") {
			raw = append(raw, strings.Split(part, "\n")...)
		}
	}
	return filterParagraphs(raw)
}

func (s *Service) scrapeContainers(doc *goquery.Document) []string {
	container := doc.Selection
	for _, sel := range contentContainers {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	var raw []string
	container.Find("p, h2, h3, li, blockquote").Each(func(_ int, sel *goquery.Selection) {
		raw = append(raw, sel.Text())
	})
	return filterParagraphs(raw)
}

func visibleText(doc *goquery.Document) string {
	clone := doc.Clone()
	clone.Find("script, style, nav, header, footer").Remove()
	return clone.Find("body").Text()
}

// assemble fills the remaining body fields from page metadata, falling
// back to the catalog summary for anything the page does not declare.
func (s *Service) assemble(ctx context.Context, link string, doc *goquery.Document, paras []string) domain.ArticleBody {
	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = text.Clean(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = text.Clean(doc.Find("title").First().Text())
	}
	published := metaContent(doc, `meta[property="article:published_time"]`)
	if published == "" {
		published, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}
	excerpt := metaContent(doc, `meta[name="description"]`)
	image := metaContent(doc, `meta[property="og:image"]`)

	var summary domain.ArticleSummary
	if items, err := s.catalog.Catalog(ctx); err == nil {
		for _, it := range items {
			if it.Link == link {
				summary = it
				break
			}
		}
	}
	if title == "" {
		title = summary.Title
	}
	if published == "" {
		published = summary.PublishedAt
	}
	if image == "" {
		image = summary.ImageURL
	}
	joined := strings.Join(paras, "\n\n")
	if excerpt == "" {
		if summary.Excerpt != "" {
			excerpt = summary.Excerpt
		} else {
			excerpt = text.Truncate(joined, 260)
		}
	}
	keywords := summary.Keywords
	if len(keywords) == 0 {
		keywords = feed.Keywords(nil, title, excerpt, joined)
	}

	var html strings.Builder
	for _, p := range paras {
		html.WriteString("<p>")
		html.WriteString(text.Escape(p))
		html.WriteString("</p>\n")
	}

	return domain.ArticleBody{
		ID:          domain.BlogID(link),
		Link:        link,
		Title:       title,
		PublishedAt: published,
		Excerpt:     text.Truncate(text.Clean(excerpt), 260),
		ImageURL:    image,
		Keywords:    keywords,
		Paragraphs:  paras,
		BodyHTML:    html.String(),
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	c, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(c)
}
