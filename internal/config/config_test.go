package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min delay above max", func(c *Config) {
			c.Fetcher.MinDelay = 5 * time.Second
			c.Fetcher.MaxDelay = time.Second
		}},
		{"negative retries", func(c *Config) { c.Fetcher.MaxRetries = -1 }},
		{"rotate chance out of range", func(c *Config) { c.Fetcher.RotateChance = 1.5 }},
		{"zero content length", func(c *Config) { c.Extractor.MaxContentLength = 0 }},
		{"unknown storage type", func(c *Config) { c.Storage.Type = "sqlite" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newshound.yaml")
	yaml := `
crawler:
  max_articles_per_page: 25
llm:
  provider: openai
  model: gpt-4o-mini
storage:
  type: mongodb
  mongo_uri: mongodb://localhost:27017
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crawler.MaxArticlesPerPage != 25 {
		t.Errorf("file value not applied, got %d", cfg.Crawler.MaxArticlesPerPage)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm config not applied: %+v", cfg.LLM)
	}
	if cfg.Storage.Type != "mongodb" {
		t.Errorf("storage type not applied, got %q", cfg.Storage.Type)
	}
	// Unset keys keep their defaults.
	if cfg.Fetcher.MaxRetries != 3 {
		t.Errorf("default retries lost, got %d", cfg.Fetcher.MaxRetries)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing config file should error")
	}
}
