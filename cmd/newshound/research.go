package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/jobs"
	"github.com/tobyhearn/newshound/internal/research"
)

var researchNoWeb bool

// researchCmd creates the "research" subcommand.
func researchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Back-fill company profiles",
		Long:  "Research companies with incomplete profiles: the language model is asked first, and thin answers are supplemented from the company's own site.",
		RunE:  runResearch,
	}

	cmd.Flags().BoolVar(&researchNoWeb, "no-web", false, "skip the web lookup pass")

	return cmd
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(slog.Default())
	defer cancel()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	var web research.WebProber
	if !researchNoWeb {
		web = research.NewWebLookup(p.fetch, p.logger)
	}

	r := research.New(p.store, p.enrich, web, p.logger)

	p.tracker.Start(jobs.JobResearch, "Researching companies")
	summary, err := r.Run(ctx)
	if err != nil {
		p.tracker.Fail(jobs.JobResearch, err.Error())
		return fmt.Errorf("research: %w", err)
	}
	p.tracker.Complete(jobs.JobResearch, summary)

	return printJSON(p.tracker.Get(jobs.JobResearch))
}
