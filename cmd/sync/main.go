// Package main generates a static snapshot of the blog from a running
// gateway: one HTML page per article, an index page, a manifest, a
// sitemap, and robots.txt. The output is meant to be served as-is by a
// static host for crawlers and no-JS clients.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/pkg/fn"
)

const fetchWorkers = 8

type config struct {
	GatewayURL string
	OutDir     string
	SiteBase   string
}

func loadConfig() config {
	return config{
		GatewayURL: envOr("GATEWAY_URL", "http://localhost:8080"),
		OutDir:     envOr("OUT_DIR", "public/blog"),
		SiteBase:   envOr("SITE_BASE", "https://pairents.com"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("snapshot failed", "err", err)
		os.Exit(1)
	}
}

type blogsResponse struct {
	Items []domain.ArticleSummary `json:"items"`
}

// page is one rendered article: the full body when the content fetch
// succeeded, otherwise an excerpt-only stand-in.
type page struct {
	Summary domain.ArticleSummary
	Body    *domain.ArticleBody
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	client := &http.Client{Timeout: 30 * time.Second}

	items, err := fetchItems(ctx, client, cfg.GatewayURL)
	if err != nil {
		return err
	}
	logger.Info("snapshot starting", "articles", len(items), "out", cfg.OutDir)

	pages := fn.ParMap(items, fetchWorkers, func(it domain.ArticleSummary) page {
		body, err := fetchBody(ctx, client, cfg.GatewayURL, it.Link)
		if err != nil {
			logger.Warn("content fetch failed, using excerpt", "link", it.Link, "err", err)
			return page{Summary: it}
		}
		return page{Summary: it, Body: body}
	})

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return err
	}
	if err := writePages(cfg, pages); err != nil {
		return err
	}
	if err := writeIndex(cfg, pages); err != nil {
		return err
	}
	if err := writeManifest(cfg, items); err != nil {
		return err
	}
	if err := writeSitemap(cfg, items); err != nil {
		return err
	}
	if err := writeRobots(cfg); err != nil {
		return err
	}

	logger.Info("snapshot complete", "pages", len(pages))
	return nil
}

func fetchItems(ctx context.Context, client *http.Client, gateway string) ([]domain.ArticleSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/v1/blogs?limit=300", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list blogs: status %d", resp.StatusCode)
	}
	var out blogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	return out.Items, nil
}

func fetchBody(ctx context.Context, client *http.Client, gateway, link string) (*domain.ArticleBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		gateway+"/v1/blog-content?link="+url.QueryEscape(link), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var body domain.ArticleBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func slugOf(link string) string {
	if id := domain.BlogID(link); id != "" {
		return id
	}
	parts := strings.Split(strings.Trim(link, "/"), "/")
	return parts[len(parts)-1]
}

func writePages(cfg config, pages []page) error {
	for _, p := range pages {
		out := filepath.Join(cfg.OutDir, slugOf(p.Summary.Link)+".html")
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		err = articleTemplate.Execute(f, articleView(cfg, p))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", out, err)
		}
	}
	return nil
}

func writeIndex(cfg config, pages []page) error {
	f, err := os.Create(filepath.Join(cfg.OutDir, "index.html"))
	if err != nil {
		return err
	}
	err = indexTemplate.Execute(f, indexView(cfg, pages))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeManifest(cfg config, items []domain.ArticleSummary) error {
	type entry struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Link        string `json:"link"`
		PublishedAt string `json:"publishedAt"`
		Excerpt     string `json:"excerpt"`
		ImageURL    string `json:"imageUrl"`
	}
	entries := fn.Map(items, func(it domain.ArticleSummary) entry {
		return entry{
			ID:          slugOf(it.Link),
			Title:       it.Title,
			Link:        it.Link,
			PublishedAt: it.PublishedAt,
			Excerpt:     it.Excerpt,
			ImageURL:    it.ImageURL,
		}
	})
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.OutDir, "manifest.json"), raw, 0o644)
}

func writeSitemap(cfg config, items []domain.ArticleSummary) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	fmt.Fprintf(&b, "  <url><loc>%s/blog/</loc></url>\n", cfg.SiteBase)
	for _, it := range items {
		fmt.Fprintf(&b, "  <url><loc>%s/blog/%s.html</loc></url>\n", cfg.SiteBase, slugOf(it.Link))
	}
	b.WriteString("</urlset>\n")
	return os.WriteFile(filepath.Join(cfg.OutDir, "sitemap.xml"), []byte(b.String()), 0o644)
}

func writeRobots(cfg config) error {
	content := fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/blog/sitemap.xml\n", cfg.SiteBase)
	return os.WriteFile(filepath.Join(cfg.OutDir, "robots.txt"), []byte(content), 0o644)
}
