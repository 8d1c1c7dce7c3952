package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newshound",
		Short: "Newshound is a news crawler with language-model enrichment",
		Long: `Newshound crawls registered news sources, extracts article content
through a layered extraction cascade, and enriches what it stores with
model-generated summaries, topic and company tags, company research,
and trending-theme reports.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(trendingCmd())
	rootCmd.AddCommand(sourceCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, setupLogger(&cfg.Logging), nil
}

// setupLogger creates a structured logger per the logging config. The
// --verbose flag overrides the configured level.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// setupMetrics starts the metrics endpoint when enabled. Returns a
// metrics collector either way; a failed listener is a warning.
func setupMetrics(cfg *config.MetricsConfig, logger *slog.Logger) *observability.Metrics {
	metrics := observability.NewMetrics(logger)
	if cfg.Enabled {
		if err := metrics.StartServer(cfg.Port, cfg.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}
	return metrics
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Newshound %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawler:\n")
			fmt.Printf("  Max Articles/Page:  %d\n", cfg.Crawler.MaxArticlesPerPage)
			fmt.Printf("  Extract Topics:     %v\n", cfg.Crawler.ExtractTopics)
			fmt.Printf("  Extract Companies:  %v\n", cfg.Crawler.ExtractCompanies)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Request Timeout:    %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Delay Range:        %s – %s\n", cfg.Fetcher.MinDelay, cfg.Fetcher.MaxDelay)
			fmt.Printf("  Max Retries:        %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  Max Body Size:      %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nExtractor:\n")
			fmt.Printf("  Max Content Length: %d\n", cfg.Extractor.MaxContentLength)
			fmt.Printf("\nLLM:\n")
			fmt.Printf("  Provider:           %s\n", cfg.LLM.Provider)
			fmt.Printf("  Endpoint:           %s\n", cfg.LLM.Endpoint)
			fmt.Printf("  Model:              %s\n", cfg.LLM.Model)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:               %s\n", cfg.Storage.Type)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
