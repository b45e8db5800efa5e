package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gateway configuration. Environment variables win over
// the optional YAML file; both fall back to defaults.
type Config struct {
	Port string `yaml:"port"`

	BlogHost         string  `yaml:"blog_host"`
	FeedURLTemplate  string  `yaml:"feed_url_template"`
	CrawlPagesPerSec float64 `yaml:"crawl_pages_per_sec"`

	CatalogTTL time.Duration `yaml:"catalog_ttl"`
	ImageTTL   time.Duration `yaml:"image_ttl"`
	BodyTTL    time.Duration `yaml:"body_ttl"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	GroqAPIKey   string `yaml:"groq_api_key"`
	GroqModel    string `yaml:"groq_model"`

	IdentityAPIKey string `yaml:"identity_api_key"`
}

func defaultConfig() Config {
	return Config{
		Port:             "8080",
		BlogHost:         "pairents.com",
		FeedURLTemplate:  "https://pairents.com/blog/feed?paged=%d",
		CrawlPagesPerSec: 2,
		CatalogTTL:       15 * time.Minute,
		ImageTTL:         20 * time.Minute,
		BodyTTL:          20 * time.Minute,
		GeminiModel:      "gemini-2.0-flash",
	}
}

// loadConfig layers defaults, the optional YAML file named by
// CONFIG_FILE, then environment variables.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.BlogHost = envOr("BLOG_HOST", cfg.BlogHost)
	cfg.FeedURLTemplate = envOr("FEED_URL_TEMPLATE", cfg.FeedURLTemplate)
	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GroqAPIKey = envOr("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.GroqModel = envOr("GROQ_MODEL", cfg.GroqModel)
	cfg.IdentityAPIKey = envOr("IDENTITY_API_KEY", cfg.IdentityAPIKey)

	if v := os.Getenv("CRAWL_PAGES_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.CrawlPagesPerSec = f
		}
	}
	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"CATALOG_TTL", &cfg.CatalogTTL},
		{"IMAGE_TTL", &cfg.ImageTTL},
		{"BODY_TTL", &cfg.BodyTTL},
	} {
		if v := os.Getenv(d.env); v != "" {
			if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
				*d.dst = dur
			}
		}
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
