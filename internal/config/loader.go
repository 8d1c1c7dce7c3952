package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSHOUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newshound")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newshound"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if c.Fetcher.MinDelay > c.Fetcher.MaxDelay {
		return fmt.Errorf("fetcher.min_delay (%s) exceeds fetcher.max_delay (%s)",
			c.Fetcher.MinDelay, c.Fetcher.MaxDelay)
	}
	if c.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", c.Fetcher.MaxRetries)
	}
	if c.Fetcher.RotateChance < 0 || c.Fetcher.RotateChance > 1 {
		return fmt.Errorf("fetcher.rotate_chance must be in [0,1], got %g", c.Fetcher.RotateChance)
	}
	if c.Extractor.MaxContentLength <= 0 {
		return fmt.Errorf("extractor.max_content_length must be positive, got %d", c.Extractor.MaxContentLength)
	}
	switch c.Storage.Type {
	case "postgres", "mongodb":
	default:
		return fmt.Errorf("unknown storage.type %q (want postgres or mongodb)", c.Storage.Type)
	}
	return nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawler.max_articles_per_page", cfg.Crawler.MaxArticlesPerPage)
	v.SetDefault("crawler.extract_topics", cfg.Crawler.ExtractTopics)
	v.SetDefault("crawler.extract_companies", cfg.Crawler.ExtractCompanies)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.min_delay", cfg.Fetcher.MinDelay)
	v.SetDefault("fetcher.max_delay", cfg.Fetcher.MaxDelay)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_base_delay", cfg.Fetcher.RetryBaseDelay)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.rotate_chance", cfg.Fetcher.RotateChance)

	v.SetDefault("extractor.max_content_length", cfg.Extractor.MaxContentLength)
	v.SetDefault("extractor.fallback_pause_max", cfg.Extractor.FallbackPauseMax)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.endpoint", cfg.LLM.Endpoint)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
