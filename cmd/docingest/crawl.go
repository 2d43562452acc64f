package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/model"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl a documentation site",
		Long: `Crawl walks a documentation site breadth-first from the given URL,
staying on the same host, and splits every page into titled sections.

Pages are stored in the local database and their sections are added to
the search index. With --follow-repos, repositories linked from the site
are indexed in the same run.

Examples:
  # Crawl a site three levels deep
  docingest crawl https://docs.example.com

  # Crawl and index the linked repositories
  docingest crawl --follow-repos https://docs.example.com

  # Render JavaScript-heavy pages with headless Chrome
  docingest crawl --render https://app.example.com/docs

Configuration file (.docingest) example:
  sites:
    docs.example.com:
      depth: 5
      ignorePatterns:
        - "/blog/*"`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("depth", "d", crawler.DefaultMaxDepth,
		"Maximum crawl depth")
	cmd.Flags().IntP("max-pages", "p", crawler.DefaultMaxPages,
		"Maximum number of pages to crawl")
	cmd.Flags().Duration("delay", crawler.DefaultDelay,
		"Delay between page requests")
	cmd.Flags().Bool("render", false,
		"Render pages with headless Chrome")
	cmd.Flags().String("chrome", "",
		"Path to the Chrome executable used for rendering")
	cmd.Flags().BoolP("follow-repos", "f", false,
		"Index repositories referenced by crawled pages")
	addFetchFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := crawlFlags(cmd, cfg); err != nil {
		return err
	}
	cfg.Targets = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg)
	return runIngest(cmd, cfg, cfg.Targets[0], nil, logger)
}

// crawlFlags copies the crawl specific flags into cfg.
func crawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return err
	}
	if cfg.UseRendering, err = flags.GetBool("render"); err != nil {
		return err
	}
	if cfg.ChromePath, err = flags.GetString("chrome"); err != nil {
		return err
	}
	if cfg.FollowRepositories, err = flags.GetBool("follow-repos"); err != nil {
		return err
	}
	return nil
}

// runIngest runs the ingestion pipeline for a crawl target and/or a set of
// repositories and writes the report.
// The report is written even when the run was interrupted.
func runIngest(cmd *cobra.Command, cfg *config.Config, target string, refs []model.RepositoryRef, logger *slog.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	if err := a.seedRegistry(ctx); err != nil {
		return err
	}

	r := model.NewIngestReport(target)
	for _, ref := range refs {
		r.AddPending(ref)
	}

	logger.Info("starting ingestion",
		"target", target,
		"repositories", len(refs),
		"followRepositories", cfg.FollowRepositories,
		"batchSize", cfg.BatchSize,
		"dataDir", cfg.DBDir,
	)

	p := a.pipeline(target, cfg.FollowRepositories)
	runErr := p.Execute(ctx, r)
	if runErr != nil {
		logger.Error("ingestion stopped", "error", runErr)
	}

	if err := writeReport(cmd, cfg, r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if r.TimedOut {
		return fmt.Errorf("ingestion interrupted: %w", runErr)
	}
	return nil
}
