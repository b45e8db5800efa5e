// Package images resolves a cover image for each article link through a
// fallback chain that always ends in a rendered placeholder, so the image
// endpoint never fails for an on-site link.
package images

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pairents/edge/engine/catalog"
	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/pkg/cache"
	"github.com/pairents/edge/pkg/fn"
	"github.com/pairents/edge/pkg/metrics"
	"github.com/pairents/edge/pkg/resilience"
)

const (
	// Proxied images may be re-served for hours; the per-link result
	// cache is much shorter, so a changed cover converges within its TTL.
	cacheControl = "public, max-age=14400"
	maxImageSize = 8 << 20
)

// Result is a ready-to-serve image response.
type Result struct {
	ContentType  string
	CacheControl string
	Body         []byte
	Placeholder  bool
}

// Resolver finds and proxies article cover images.
type Resolver struct {
	catalog *catalog.Service
	client  *http.Client
	store   *cache.Store[Result]
	host    string
	limiter *resilience.Limiter
	log     *slog.Logger

	resolved *metrics.Counter
	fallback *metrics.Counter
}

// NewResolver wires an image resolver. ttl bounds per-link result reuse.
func NewResolver(cat *catalog.Service, client *http.Client, host string, ttl time.Duration, log *slog.Logger, reg *metrics.Registry) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Resolver{
		catalog:  cat,
		client:   client,
		store:    cache.New[Result](ttl),
		host:     host,
		limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: 20, Burst: 10}),
		log:      log,
		resolved: reg.Counter("images_resolved_total", "Images resolved from an upstream source."),
		fallback: reg.Counter("images_placeholder_total", "Images served as the SVG placeholder."),
	}
}

// errUnresolved marks a fill that fell through the whole chain. It
// stays inside this package: callers see the placeholder, not an error.
var errUnresolved = errors.New("no image resolved")

// Resolve returns a servable image for link. Off-site or malformed links
// get ErrNotFound and are never cached; every on-site link resolves to
// either a proxied upstream image or the placeholder. Only resolved
// images enter the cache, so a transient upstream failure is retried on
// the next request instead of pinning the placeholder for a full TTL.
func (r *Resolver) Resolve(ctx context.Context, link string) (Result, error) {
	canonical, err := domain.CanonicalizeLink(link, r.host)
	if err != nil {
		return Result{}, err
	}
	res, err := r.store.GetOrFill(ctx, canonical, func(ctx context.Context) (Result, error) {
		res := r.resolve(ctx, canonical)
		if res.Placeholder {
			r.fallback.Inc()
			return Result{}, errUnresolved
		}
		r.resolved.Inc()
		return res, nil
	})
	if err != nil {
		return placeholder(), nil
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, link string) Result {
	imgURL := r.catalogImage(ctx, link)
	if imgURL == "" {
		// The link may postdate the cached catalog.
		r.catalog.Invalidate()
		imgURL = r.catalogImage(ctx, link)
	}
	if imgURL == "" {
		imgURL = r.pageImage(ctx, link)
	}
	if imgURL != "" {
		if res, err := r.proxy(ctx, imgURL); err == nil {
			return res
		} else {
			r.log.Warn("image proxy failed, serving placeholder",
				"link", link, "image", imgURL, "error", err)
		}
	}
	return placeholder()
}

func (r *Resolver) catalogImage(ctx context.Context, link string) string {
	items, err := r.catalog.Catalog(ctx)
	if err != nil {
		return ""
	}
	for _, it := range items {
		if it.Link == link && it.ImageURL != "" {
			return it.ImageURL
		}
	}
	return ""
}

// pageImage scrapes the article page itself for a cover image: og:image,
// then twitter:image, then the first non-logo img tag.
func (r *Resolver) pageImage(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if u, ok := doc.Find(sel).First().Attr("content"); ok && usable(u) {
			return u
		}
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
	return u != "" && !strings.Contains(strings.ToLower(u), "logo")
}

// proxy fetches the image bytes, retrying transient failures, and
// rejects responses that are not images.
func (r *Resolver) proxy(ctx context.Context, imgURL string) (Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}
	res := fn.Retry(ctx, fn.RetryOpts{MaxAttempts: 2, InitialWait: 200 * time.Millisecond, MaxWait: time.Second, Jitter: true},
		func(ctx context.Context) fn.Result[Result] {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
			if err != nil {
				return fn.Err[Result](err)
			}
			resp, err := r.client.Do(req)
			if err != nil {
				return fn.Err[Result](err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fn.Errf[Result]("image fetch: status %d", resp.StatusCode)
			}
			ct := resp.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "image/") {
				return fn.Errf[Result]("image fetch: content type %q", ct)
			}
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
			if err != nil {
				return fn.Err[Result](err)
			}
			return fn.Ok(Result{ContentType: ct, CacheControl: cacheControl, Body: body})
		})
	return res.Unwrap()
}

// placeholderSVG is the fixed cover served when no image resolves.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="630" viewBox="0 0 1200 630">
<rect width="1200" height="630" fill="#f4ede4"/>
<circle cx="600" cy="265" r="110" fill="#e8b4a0"/>
<rect x="430" y="420" width="340" height="18" rx="9" fill="#d9c7b8"/>
<rect x="490" y="460" width="220" height="14" rx="7" fill="#d9c7b8"/>
<text x="600" y="560" text-anchor="middle" font-family="sans-serif" font-size="28" fill="#8a7968">pairents</text>
</svg>`

func placeholder() Result {
	return Result{
		ContentType:  "image/svg+xml",
		CacheControl: cacheControl,
		Body:         []byte(placeholderSVG),
		Placeholder:  true,
	}
}
