package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/crawl"
	"github.com/tobyhearn/newshound/internal/discover"
	"github.com/tobyhearn/newshound/internal/enrich"
	"github.com/tobyhearn/newshound/internal/extract"
	"github.com/tobyhearn/newshound/internal/fetcher"
	"github.com/tobyhearn/newshound/internal/jobs"
	"github.com/tobyhearn/newshound/internal/observability"
	"github.com/tobyhearn/newshound/internal/storage"
	"github.com/tobyhearn/newshound/internal/types"
)

// pipeline bundles the wired components shared by the subcommands.
type pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	fetch   *fetcher.Client
	store   storage.Store
	client  *enrich.Client
	enrich  *enrich.Enricher
	orch    *crawl.Orchestrator
	tracker *jobs.Tracker
}

// buildPipeline wires the full ingestion stack from configuration.
// The caller owns store.Close.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	metrics := setupMetrics(&cfg.Metrics, logger)

	fetch := fetcher.New(&cfg.Fetcher, metrics, logger)
	disc := discover.New(metrics, logger)
	extractor := extract.New(&cfg.Extractor, metrics, logger)

	store, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	client := enrich.NewClient(&cfg.LLM, logger)
	enricher := enrich.NewEnricher(client, logger)

	orch := crawl.New(&cfg.Crawler, fetch, disc, extractor, store, enricher, metrics, logger)

	return &pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		fetch:   fetch,
		store:   store,
		client:  client,
		enrich:  enricher,
		orch:    orch,
		tracker: jobs.NewTracker(logger),
	}, nil
}

func (p *pipeline) close() {
	if err := p.store.Close(); err != nil {
		p.logger.Warn("closing storage", "error", err)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Sweep all active sources",
		Long:  "Fetch every active source registration, discover article links, and ingest new articles with summaries and entity tags.",
		RunE:  runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(slog.Default())
	defer cancel()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	if !p.client.TestConnection(ctx) {
		p.logger.Warn("language model backend unreachable, summaries will use the failure placeholder",
			"endpoint", p.cfg.LLM.Endpoint)
	}

	p.tracker.Start(jobs.JobCrawl, "Sweeping sources")
	start := time.Now()

	summary, err := p.orch.RunCrawl(ctx)
	if err != nil {
		p.tracker.Fail(jobs.JobCrawl, err.Error())
		if errors.Is(err, types.ErrNoSources) {
			fmt.Println("No active sources registered. Add one with: newshound source add <url>")
			return nil
		}
		return fmt.Errorf("crawl: %w", err)
	}
	p.tracker.Complete(jobs.JobCrawl, summary)

	elapsed := time.Since(start)
	p.logger.Info("crawl complete",
		"elapsed", elapsed,
		"new", summary.NewArticles,
		"existing", summary.ExistingArticles,
		"failed", summary.FailedExtractions,
	)

	// The job snapshot carries the summary plus status and timing.
	return printJSON(p.tracker.Get(jobs.JobCrawl))
}

// printJSON writes a result to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
