// Package catalog maintains the in-memory article catalog: a paginated
// crawl of the blog feed merged into one list, cached behind a TTL, and
// searchable by keyword score.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/araddon/dateparse"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/engine/feed"
	"github.com/pairents/edge/pkg/cache"
	"github.com/pairents/edge/pkg/metrics"
)

const (
	catalogKey = "catalog"
	maxPages   = 20
	// Two consecutive pages that add nothing mean the feed is looping.
	maxStalePages = 2
)

// Fetcher retrieves one page of the blog feed.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]byte, error)
}

// HTTPFetcher fetches feed pages over HTTP with a politeness limiter.
type HTTPFetcher struct {
	client      *http.Client
	urlTemplate string // printf template with one %d page slot
	limiter     *rate.Limiter
}

// NewHTTPFetcher creates a fetcher for urlTemplate, paced at pagesPerSec.
func NewHTTPFetcher(client *http.Client, urlTemplate string, pagesPerSec float64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{
		client:      client,
		urlTemplate: urlTemplate,
		limiter:     rate.NewLimiter(rate.Limit(pagesPerSec), 1),
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, page int) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url := fmt.Sprintf(f.urlTemplate, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: feed page %d: %v", domain.ErrUpstreamUnavailable, page, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: feed page %d: status %d", domain.ErrUpstreamUnavailable, page, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Service owns the cached catalog and its search index.
type Service struct {
	fetcher Fetcher
	parser  *feed.Parser
	store   *cache.Store[[]domain.ArticleSummary]
	log     *slog.Logger
	tracer  trace.Tracer

	crawls    *metrics.Counter
	pages     *metrics.Counter
	cacheHits *metrics.Counter
	items     *metrics.Gauge
	crawlTime *metrics.Histogram
}

// NewService wires a catalog service. ttl bounds catalog staleness.
func NewService(fetcher Fetcher, parser *feed.Parser, ttl time.Duration, log *slog.Logger, reg *metrics.Registry) *Service {
	return &Service{
		fetcher:   fetcher,
		parser:    parser,
		store:     cache.New[[]domain.ArticleSummary](ttl),
		log:       log,
		tracer:    otel.Tracer("engine/catalog"),
		crawls:    reg.Counter("catalog_crawls_total", "Full feed crawls performed."),
		pages:     reg.Counter("catalog_pages_fetched_total", "Feed pages fetched."),
		cacheHits: reg.Counter("catalog_cache_hits_total", "Catalog reads served from cache."),
		items:     reg.Gauge("catalog_items", "Articles in the current catalog."),
		crawlTime: reg.Histogram("catalog_crawl_duration_seconds", "Feed crawl duration.", nil),
	}
}

// Catalog returns the current article list, crawling the feed when the
// cached copy is missing or expired. Concurrent refreshes coalesce into
// one crawl.
func (s *Service) Catalog(ctx context.Context) ([]domain.ArticleSummary, error) {
	if items, ok := s.store.Get(catalogKey); ok {
		s.cacheHits.Inc()
		return items, nil
	}
	return s.store.GetOrFill(ctx, catalogKey, s.crawl)
}

// Invalidate drops the cached catalog so the next read recrawls. The
// image resolver uses it when a link is newer than the cached list.
func (s *Service) Invalidate() {
	s.store.Invalidate(catalogKey)
}

// crawl walks feed pages sequentially, merging items by canonical link
// with the first occurrence winning. It stops on an empty page, the page
// ceiling, or two consecutive pages that add no new links. A failure on
// page 1 fails the crawl; later failures end it with what was gathered.
func (s *Service) crawl(ctx context.Context) ([]domain.ArticleSummary, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.crawl")
	defer span.End()
	s.crawls.Inc()
	defer s.crawlTime.Since(time.Now())

	var (
		merged []domain.ArticleSummary
		seen   = make(map[string]struct{})
		stale  = 0
	)
	for page := 1; page <= maxPages; page++ {
		body, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			s.log.Warn("feed page fetch failed, ending crawl",
				"page", page, "error", err)
			break
		}
		s.pages.Inc()

		items := s.parser.Parse(body)
		if len(items) == 0 {
			break
		}
		added := 0
		for _, it := range items {
			if _, dup := seen[it.Link]; dup {
				continue
			}
			seen[it.Link] = struct{}{}
			merged = append(merged, it)
			added++
		}
		if added == 0 {
			stale++
			if stale >= maxStalePages {
				break
			}
		} else {
			stale = 0
		}
	}

	sortByRecency(merged)
	s.items.Set(int64(len(merged)))
	span.SetAttributes(attribute.Int("catalog.items", len(merged)))
	s.log.Info("catalog refreshed", "items", len(merged))
	return merged, nil
}

// sortByRecency orders summaries publish-time descending. Items whose
// timestamp cannot be parsed sort last, among themselves by title for a
// stable order.
func sortByRecency(items []domain.ArticleSummary) {
	ts := make(map[string]time.Time, len(items))
	for _, it := range items {
		if t, err := dateparse.ParseAny(it.PublishedAt); err == nil {
			ts[it.Link] = t
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		ti, iok := ts[items[i].Link]
		tj, jok := ts[items[j].Link]
		switch {
		case iok && jok:
			return ti.After(tj)
		case iok:
			return true
		case jok:
			return false
		default:
			return items[i].Title < items[j].Title
		}
	})
}
