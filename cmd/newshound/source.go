package main

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tobyhearn/newshound/internal/types"
)

var (
	sourceTopics    bool
	sourceCompanies bool
	sourceInactive  bool
)

// sourceCmd creates the "source" subcommand group.
func sourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage source registrations",
	}
	cmd.AddCommand(sourceAddCmd())
	return cmd
}

func sourceAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Register a source URL for the crawl sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourceAdd,
	}

	cmd.Flags().BoolVar(&sourceTopics, "topics", true, "extract topic tags from this source's articles")
	cmd.Flags().BoolVar(&sourceCompanies, "companies", true, "extract company tags from this source's articles")
	cmd.Flags().BoolVar(&sourceInactive, "inactive", false, "register without activating")

	return cmd
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
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

	src := &types.Source{
		URL:              rawURL,
		ExtractTopics:    sourceTopics,
		ExtractCompanies: sourceCompanies,
		Active:           !sourceInactive,
	}

	id, err := p.store.AddSource(ctx, src)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}

	fmt.Printf("Source %d registered: %s\n", id, rawURL)
	return nil
}
