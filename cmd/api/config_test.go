package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.CatalogTTL != 15*time.Minute {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.ImageTTL != 20*time.Minute || cfg.BodyTTL != 20*time.Minute {
		t.Fatalf("ttl defaults: %+v", cfg)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BLOG_HOST", "staging.example.com")
	t.Setenv("CATALOG_TTL", "5m")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.BlogHost != "staging.example.com" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.CatalogTTL != 5*time.Minute {
		t.Fatalf("ttl = %s", cfg.CatalogTTL)
	}
}

func TestLoadConfigYAMLThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"7777\"\nblog_host: yaml.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6666")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BlogHost != "yaml.example.com" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.Port != "6666" {
		t.Fatalf("env should win over yaml: %q", cfg.Port)
	}
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(":::not yaml"), 0o644)
	t.Setenv("CONFIG_FILE", path)
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}
