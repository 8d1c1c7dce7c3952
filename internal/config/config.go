package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for newshound.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"   yaml:"crawler"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// CrawlerConfig controls the orchestration sweep.
type CrawlerConfig struct {
	MaxArticlesPerPage int  `mapstructure:"max_articles_per_page" yaml:"max_articles_per_page"`
	ExtractTopics      bool `mapstructure:"extract_topics"        yaml:"extract_topics"`
	ExtractCompanies   bool `mapstructure:"extract_companies"     yaml:"extract_companies"`
}

// FetcherConfig controls the rate-limited fetcher.
type FetcherConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	MinDelay       time.Duration `mapstructure:"min_delay"        yaml:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"        yaml:"max_delay"`
	MaxRetries     int           `mapstructure:"max_retries"      yaml:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	MaxBodySize    int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	// RotateChance is the per-request probability of rotating the
	// header profile. A tunable, not a contract.
	RotateChance float64 `mapstructure:"rotate_chance" yaml:"rotate_chance"`
}

// ExtractorConfig controls content extraction.
type ExtractorConfig struct {
	MaxContentLength int           `mapstructure:"max_content_length" yaml:"max_content_length"`
	FallbackPauseMax time.Duration `mapstructure:"fallback_pause_max" yaml:"fallback_pause_max"`
}

// LLMConfig controls the language-model backend used for enrichment.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"    yaml:"provider"` // ollama, openai, custom
	Endpoint    string        `mapstructure:"endpoint"    yaml:"endpoint"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	APIKey      string        `mapstructure:"api_key"     yaml:"api_key"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type     string `mapstructure:"type"      yaml:"type"` // postgres, mongodb
	DSN      string `mapstructure:"dsn"       yaml:"dsn"`
	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	Database string `mapstructure:"database"  yaml:"database"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			MaxArticlesPerPage: 10,
			ExtractTopics:      true,
			ExtractCompanies:   true,
		},
		Fetcher: FetcherConfig{
			RequestTimeout: 30 * time.Second,
			MinDelay:       1 * time.Second,
			MaxDelay:       3 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			RotateChance:   0.3,
		},
		Extractor: ExtractorConfig{
			MaxContentLength: 50000,
			FallbackPauseMax: 2 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:3b",
			MaxTokens:   1000,
			Temperature: 0.1,
			Timeout:     120 * time.Second,
		},
		Storage: StorageConfig{
			Type:     "postgres",
			DSN:      "postgres://localhost:5432/newshound?sslmode=disable",
			Database: "newshound",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
