package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/database"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/index"
	"github.com/nao1215/docingest/internal/log"
	"github.com/nao1215/docingest/internal/markup"
	"github.com/nao1215/docingest/internal/metadata"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/pipeline"
	"github.com/nao1215/docingest/internal/processor"
	"github.com/nao1215/docingest/internal/repohost"
	"github.com/nao1215/docingest/internal/report"
	"github.com/nao1215/docingest/internal/walker"
)

// tokenEnv is the environment variable holding the repository API token.
const tokenEnv = "GITHUB_TOKEN"

// addFetchFlags registers the flags shared by commands that go online.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", fetch.DefaultTimeout,
		"Timeout for each request attempt")
	cmd.Flags().Int("max-concurrent", fetch.DefaultMaxConcurrent,
		"Maximum simultaneous requests")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries after a transient failure")
	cmd.Flags().Duration("retry-delay", fetch.DefaultRetryDelay,
		"Base delay between retries (grows linearly)")
	cmd.Flags().String("user-agent", fetch.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().String("api-url", repohost.DefaultBaseURL,
		"Repository API endpoint")
	cmd.Flags().String("socks-proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:1080)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of repositories indexed concurrently")
	cmd.Flags().Duration("max-age", walker.DefaultMaxAge,
		"Re-index repositories last indexed longer ago than this")
	cmd.Flags().Bool("force", false,
		"Re-index repositories even when they are fresh")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .docingest in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// baseConfig creates a Config holding only the settings every command
// needs: verbosity, data directories and the configuration file.
func baseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		if dataDir, err = cmd.Root().PersistentFlags().GetString("data-dir"); err != nil {
			return nil, err
		}
	}
	if dataDir != "" {
		cfg.DBDir = dataDir
		cfg.IndexDir = filepath.Join(dataDir, "index")
	}

	if f := cmd.Flags().Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile loads the site and repository configuration.
// If the user explicitly specified a config file path, it is an error when
// the file is missing. Otherwise an empty configuration is used.
func loadConfigFile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = f
	case explicitConfigPath:
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// buildConfig creates a Config from the shared fetch and report flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent, err = flags.GetInt("max-concurrent"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.GitHubAPIURL, err = flags.GetString("api-url"); err != nil {
		return nil, err
	}
	if cfg.SOCKSProxy, err = flags.GetString("socks-proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ReindexMaxAge, err = flags.GetDuration("max-age"); err != nil {
		return nil, err
	}
	if cfg.ForceReindex, err = flags.GetBool("force"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.GitHubToken = os.Getenv(tokenEnv)
	return cfg, nil
}

// app holds the long-lived components of one command invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	fetcher   *fetch.Fetcher
	store     *database.Store
	index     *index.Index
	extractor *markup.Extractor
	generator *metadata.Generator
	registry  *processor.Registry
	host      *repohost.Client
}

// newApp opens the store and the index and wires the processing stack.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	var client *http.Client
	if cfg.SOCKSProxy != "" {
		if err := fetch.CheckSOCKSProxy(ctx, cfg.SOCKSProxy); err != nil {
			return nil, fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w", cfg.SOCKSProxy, err)
		}
		c, err := fetch.NewSOCKSHTTPClient(cfg.SOCKSProxy, nil)
		if err != nil {
			return nil, err
		}
		client = c
		logger.Info("SOCKS5 proxy connection verified", "address", cfg.SOCKSProxy)
	}

	store, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	idx, err := index.Open(cfg.IndexDir)
	if err != nil {
		_ = store.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	// Design decision: Metrics are registered on a private registry so that
	// several apps in one process (tests) do not collide on registration.
	metrics, err := fetch.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		_ = idx.Close()   //nolint:errcheck // Best effort cleanup
		_ = store.Close() //nolint:errcheck // Best effort cleanup
		return nil, err
	}

	fetchOpts := []fetch.Option{
		fetch.WithMaxConcurrent(cfg.MaxConcurrent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetry(cfg.MaxAttempts(), cfg.RetryDelay),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithMetrics(metrics),
		fetch.WithLogger(logger),
	}
	if client != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(client))
	}
	if cfg.UseRendering || siteRenders(cfg) {
		renderOpts := []fetch.ChromeOption{
			fetch.WithSettleDelay(cfg.RenderSettleDelay),
			fetch.WithRendererUserAgent(cfg.UserAgent),
		}
		if cfg.ChromePath != "" {
			renderOpts = append(renderOpts, fetch.WithExecPath(cfg.ChromePath))
		}
		fetchOpts = append(fetchOpts, fetch.WithRenderer(fetch.NewChromeRenderer(renderOpts...)))
	}
	f := fetch.New(fetchOpts...)

	extractor := markup.NewExtractor(
		markup.WithValidator(markup.NewValidator(
			markup.WithAllowedTags(cfg.AllowedTags),
			markup.WithLenient(cfg.LenientParsing),
		)),
		markup.WithTitleLength(cfg.MinTitleLength, cfg.MaxTitleLength),
		markup.WithMinContentLength(cfg.MinContentLength),
		markup.WithPreserveFormatting(cfg.PreserveFormatting),
	)

	hostOpts := []repohost.Option{repohost.WithBaseURL(cfg.GitHubAPIURL)}
	if cfg.GitHubToken != "" {
		hostOpts = append(hostOpts, repohost.WithToken(cfg.GitHubToken))
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		fetcher:   f,
		store:     store,
		index:     idx,
		extractor: extractor,
		generator: metadata.NewGenerator(
			metadata.WithMaxTopics(cfg.MaxTopics),
			metadata.WithMinTopicLength(cfg.MinTopicLength),
			metadata.WithStopwords(cfg.Stopwords),
		),
		registry: processor.NewDefaultRegistry(extractor, cfg.MaxCodeSize),
		host:     repohost.NewClient(f, hostOpts...),
	}, nil
}

// siteRenders reports whether any configured site turns rendering on.
func siteRenders(cfg *config.Config) bool {
	if cfg.SiteConfigs == nil {
		return false
	}
	if r := cfg.SiteConfigs.Defaults.Render; r != nil && *r {
		return true
	}
	for _, sc := range cfg.SiteConfigs.Sites {
		if sc.Render != nil && *sc.Render {
			return true
		}
	}
	return false
}

// Close releases the store and the index.
func (a *app) Close() error {
	return errors.Join(a.index.Close(), a.store.Close())
}

// seedRegistry writes the repositories of the configuration file to the
// store so the indexer picks up their registry fields.
func (a *app) seedRegistry(ctx context.Context) error {
	for _, rc := range a.cfg.SiteConfigs.RepositoryConfigs() {
		if err := a.store.SaveRepositoryConfig(ctx, rc); err != nil {
			return fmt.Errorf("failed to save repository %s: %w", rc.Key(), err)
		}
	}
	return nil
}

// spider builds a Spider for target honoring its site configuration.
func (a *app) spider(target string) *crawler.Spider {
	var site config.SiteConfig
	if u, err := url.Parse(target); err == nil && a.cfg.SiteConfigs != nil {
		site = a.cfg.SiteConfigs.GetSiteConfig(u.Hostname())
	}

	depth := a.cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}
	render := a.cfg.UseRendering
	if site.Render != nil {
		render = *site.Render
	}

	headers := make(map[string]string, len(site.Headers)+1)
	for k, v := range site.Headers {
		headers[k] = v
	}
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}

	return crawler.NewSpider(a.fetcher,
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(a.cfg.MaxPages),
		crawler.WithDelay(a.cfg.CrawlDelay),
		crawler.WithRendering(render && a.fetcher.HasRenderer()),
		crawler.WithHeaders(headers),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithExtractor(a.extractor),
		crawler.WithGenerator(a.generator),
		crawler.WithLogger(a.logger),
	)
}

// batch builds the repository batch processor.
func (a *app) batch() *pipeline.BatchProcessor {
	indexer := walker.NewIndexer(a.host, a.store, a.registry,
		walker.WithLogger(a.logger),
		walker.WithMaxAge(a.cfg.ReindexMaxAge),
		walker.WithMaxTreeDepth(a.cfg.MaxTreeDepth),
	)
	return pipeline.NewBatchProcessor(&scopedIndexer{indexer: indexer, file: a.cfg.SiteConfigs},
		pipeline.WithConcurrency(a.cfg.BatchSize),
		pipeline.WithBatchLogger(a.logger),
		pipeline.WithIndexOptions(walker.IndexOptions{
			IncludePaths: a.cfg.IncludePaths,
			ExcludePaths: a.cfg.ExcludePaths,
			ExcludeGlobs: a.cfg.ExcludeGlobs,
			ForceReindex: a.cfg.ForceReindex,
		}),
	)
}

// pipeline builds the full ingestion pipeline.
func (a *app) pipeline(target string, follow bool) *pipeline.Pipeline {
	c := pipeline.Components{
		Batch:              a.batch(),
		Index:              a.index,
		Store:              a.store,
		Generator:          a.generator,
		FollowRepositories: follow,
		Logger:             a.logger,
	}
	if target != "" {
		c.Crawler = a.spider(target)
	}
	return pipeline.DefaultPipeline(c, pipeline.WithContinueOnError(true))
}

// scopedIndexer applies the per-repository include/exclude paths of the
// configuration file when the command line gave none.
type scopedIndexer struct {
	indexer *walker.Indexer
	file    *config.File
}

func (s *scopedIndexer) IndexRepository(ctx context.Context, owner, name string, opts walker.IndexOptions) (*model.IndexingResult, *model.RepositoryArtifact, error) {
	if s.file != nil && len(opts.IncludePaths) == 0 && len(opts.ExcludePaths) == 0 {
		if entry, ok := s.file.Repository(owner, name); ok {
			opts.IncludePaths = entry.IncludePaths
			opts.ExcludePaths = entry.ExcludePaths
		}
	}
	return s.indexer.IndexRepository(ctx, owner, name, opts)
}

// newLogger creates the secure logger and installs it as the default.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

// writeReport outputs the run report in the requested format.
func writeReport(cmd *cobra.Command, cfg *config.Config, r *model.IngestReport) error {
	var output io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(r)
	return err
}
