// Package main implements the pairents edge gateway: blog catalog and
// search, article images and bodies, and the guidance endpoints.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pairents/edge/engine/catalog"
	"github.com/pairents/edge/engine/extract"
	"github.com/pairents/edge/engine/feed"
	"github.com/pairents/edge/engine/guidance"
	"github.com/pairents/edge/engine/identity"
	"github.com/pairents/edge/engine/images"
	"github.com/pairents/edge/pkg/metrics"
	"github.com/pairents/edge/pkg/mid"
)

const serviceName = "pairents"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	outbound := &http.Client{
		Timeout:   20 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	cat := catalog.NewService(
		catalog.NewHTTPFetcher(outbound, cfg.FeedURLTemplate, cfg.CrawlPagesPerSec),
		feed.NewParser(cfg.BlogHost),
		cfg.CatalogTTL, logger, reg,
	)
	resolver := images.NewResolver(cat, outbound, cfg.BlogHost, cfg.ImageTTL, logger, reg)
	extractor := extract.NewService(cat, outbound, cfg.BlogHost, cfg.BodyTTL, logger, reg)
	orchestrator := guidance.NewOrchestrator(logger, reg,
		guidance.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, "", outbound),
		guidance.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, "", outbound),
	)
	verifier := identity.NewVerifier(cfg.IdentityAPIKey, "", outbound)

	srvr := &server{
		log:      logger,
		catalog:  cat,
		images:   resolver,
		extract:  extractor,
		guidance: orchestrator,
		identity: verifier,
	}

	mux := http.NewServeMux()
	srvr.routes(mux)
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.CORS(),
		mid.OTel(serviceName),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting", "port", cfg.Port, "blog_host", cfg.BlogHost)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
