package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/jobs"
	"github.com/tobyhearn/newshound/internal/trends"
)

var trendingDays int

// trendingCmd creates the "trending" subcommand.
func trendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Report trending themes over a recent window",
		Long:  "Analyze recently crawled articles for recurring themes, with entity rankings and keyword-matched related articles. Requires the postgres backend.",
		RunE:  runTrending,
	}

	cmd.Flags().IntVarP(&trendingDays, "days", "d", 7, "analysis window in days")

	return cmd
}

func runTrending(cmd *cobra.Command, args []string) error {
	if trendingDays <= 0 {
		return fmt.Errorf("--days must be positive, got %d", trendingDays)
	}

	ctx, cancel := signalContext(slog.Default())
	defer cancel()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	store, ok := p.store.(trends.Store)
	if !ok {
		return fmt.Errorf("trending analysis requires the postgres backend, storage.type is %q", p.cfg.Storage.Type)
	}

	a := trends.New(store, p.client, p.logger)

	p.tracker.Start(jobs.JobTrending, "Analyzing themes")
	report, err := a.Analyze(ctx, trendingDays)
	if err != nil {
		p.tracker.Fail(jobs.JobTrending, err.Error())
		return fmt.Errorf("trending: %w", err)
	}
	p.tracker.Complete(jobs.JobTrending, report)

	return printJSON(p.tracker.Get(jobs.JobTrending))
}
