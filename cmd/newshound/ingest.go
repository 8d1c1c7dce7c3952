package main

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/types"
)

var (
	ingestTopics    bool
	ingestCompanies bool
)

// ingestCmd creates the "ingest" subcommand for single-URL ingestion.
func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [url]",
		Short: "Ingest a single article URL",
		Long:  "Fetch, extract, and store one article directly, bypassing source discovery. Reports per-URL success and any tags applied.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().BoolVar(&ingestTopics, "topics", true, "extract topic tags")
	cmd.Flags().BoolVar(&ingestCompanies, "companies", true, "extract company tags")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidURL, rawURL)
	}

	ctx, cancel := signalContext(slog.Default())
	defer cancel()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	result := p.orch.ProcessURL(ctx, rawURL, ingestTopics, ingestCompanies)
	return printJSON(result)
}
