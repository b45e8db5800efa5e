package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func gatewayStub(t *testing.T, contentOK bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/blogs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"title":"Tummy time basics","link":"https://pairents.com/blog/tummy-time","publishedAt":"2026-03-01","excerpt":"Why floor play matters.","imageUrl":"https://cdn.example.com/tt.jpg"},
			{"title":"Picky eating","link":"https://pairents.com/blog/picky-eating","publishedAt":"2026-02-01","excerpt":"Appetite swings are normal.","imageUrl":""}
		],"total":2,"matched":2}`))
	})
	mux.HandleFunc("/v1/blog-content", func(w http.ResponseWriter, r *http.Request) {
		if !contentOK {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"tummy-time","link":"https://pairents.com/blog/tummy-time","title":"Tummy time basics","publishedAt":"2026-03-01","excerpt":"Why floor play matters.","imageUrl":"","keywords":["tummy"],"paragraphs":["Short daily sessions on the floor build the neck and shoulder strength needed for rolling."],"bodyHtml":"<p>x</p>"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSnapshotWritesAllArtifacts(t *testing.T) {
	srv := gatewayStub(t, true)
	out := t.TempDir()
	cfg := config{GatewayURL: srv.URL, OutDir: out, SiteBase: "https://pairents.com"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), cfg, log); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"tummy-time.html", "picky-eating.html", "index.html",
		"manifest.json", "sitemap.xml", "robots.txt",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	article, _ := os.ReadFile(filepath.Join(out, "tummy-time.html"))
	if !strings.Contains(string(article), "neck and shoulder strength") {
		t.Fatalf("article body missing:\n%s", article)
	}
	if !strings.Contains(string(article), `rel="canonical" href="https://pairents.com/blog/tummy-time"`) {
		t.Fatal("canonical link missing")
	}

	sitemap, _ := os.ReadFile(filepath.Join(out, "sitemap.xml"))
	if !strings.Contains(string(sitemap), "https://pairents.com/blog/tummy-time.html") {
		t.Fatalf("sitemap missing article:\n%s", sitemap)
	}

	manifest, _ := os.ReadFile(filepath.Join(out, "manifest.json"))
	if !strings.Contains(string(manifest), `"id": "picky-eating"`) {
		t.Fatalf("manifest missing entry:\n%s", manifest)
	}
}

func TestSnapshotFallsBackToExcerptOnContentFailure(t *testing.T) {
	srv := gatewayStub(t, false)
	out := t.TempDir()
	cfg := config{GatewayURL: srv.URL, OutDir: out, SiteBase: "https://pairents.com"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), cfg, log); err != nil {
		t.Fatal(err)
	}

	article, _ := os.ReadFile(filepath.Join(out, "tummy-time.html"))
	if !strings.Contains(string(article), "Why floor play matters.") {
		t.Fatalf("excerpt fallback missing:\n%s", article)
	}
	if !strings.Contains(string(article), "Read the full article") {
		t.Fatalf("fallback page should link to the live article:\n%s", article)
	}
}

func TestIndexListsAllArticles(t *testing.T) {
	srv := gatewayStub(t, true)
	out := t.TempDir()
	cfg := config{GatewayURL: srv.URL, OutDir: out, SiteBase: "https://pairents.com"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), cfg, log); err != nil {
		t.Fatal(err)
	}
	index, _ := os.ReadFile(filepath.Join(out, "index.html"))
	for _, want := range []string{`href="tummy-time.html"`, `href="picky-eating.html"`} {
		if !strings.Contains(string(index), want) {
			t.Fatalf("index missing %s:\n%s", want, index)
		}
	}
}
