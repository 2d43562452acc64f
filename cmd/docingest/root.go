package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docingest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docingest",
		Short: "Documentation ingestion for sites and repositories",
		Long: `docingest acquires technical documentation from websites and hosted
repositories, splits it into titled sections with topics, and stores the
result in a local database and full-text index.

Crawl a documentation site, optionally following the repositories it links
to, or index repositories directly. Stored results can be searched offline.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory for the database and search index (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewRepoCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
// SIGINT and SIGTERM cancel the command context; long-running commands stop
// at the next step boundary and still write a partial report.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}
