package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/markup"
	"github.com/nao1215/docingest/internal/metadata"
	"github.com/nao1215/docingest/internal/processor"
	"github.com/nao1215/docingest/internal/repohost"
	"github.com/nao1215/docingest/internal/walker"
)

// Default configuration values.
// Fetch, crawl and extraction defaults come from the packages that own
// them so the CLI and the library agree.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docingest"

	// DefaultBatchSize is the number of repositories indexed concurrently.
	// Each repository walk issues many API requests of its own, so this is
	// kept below the fetch concurrency cap.
	DefaultBatchSize = 4

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = fetch.DefaultMaxAttempts - 1

	// DefaultRenderSettleDelay is how long the headless browser waits after
	// navigation before the DOM is captured.
	DefaultRenderSettleDelay = fetch.DefaultSettleDelay
)

// Config holds all configuration options for docingest.
// This struct is populated from CLI flags and the optional config file and
// passed through the application via dependency injection rather than
// global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ExtractConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .docingest in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the contents of the configuration file.
	SiteConfigs *File

	// Targets are the site URLs to crawl.
	Targets []string

	// Repositories are "owner/name" repositories to index.
	Repositories []string

	// FollowRepositories queues repositories referenced by crawled pages.
	FollowRepositories bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// MaxConcurrent caps simultaneous outbound requests across the process.
	MaxConcurrent int

	// BatchSize is the number of repositories indexed at once.
	BatchSize int

	// Timeout applies to each attempt of each request.
	Timeout time.Duration

	// MaxRetries is the number of retries after a retryable failure.
	MaxRetries int

	// RetryDelay is the base of the linear retry delay.
	RetryDelay time.Duration

	// IncludePaths restricts a repository walk to these path prefixes.
	IncludePaths []string

	// ExcludePaths removes these path prefixes from a repository walk.
	// Ignored when IncludePaths is set.
	ExcludePaths []string

	// ExcludeGlobs removes repository paths matching these doublestar
	// patterns in both modes.
	ExcludeGlobs []string

	// ForceReindex re-walks repositories even when they are fresh.
	ForceReindex bool

	// MaxDepth is the maximum link depth of a site crawl.
	// Depth 0 means only fetch the start page.
	MaxDepth int

	// MaxPages is the maximum number of pages fetched per crawl.
	MaxPages int

	// CrawlDelay is the pause between page fetches of a crawl.
	CrawlDelay time.Duration

	// UseRendering fetches pages through a headless browser.
	UseRendering bool

	// RenderSettleDelay is the post-navigation wait of the browser.
	RenderSettleDelay time.Duration

	// ChromePath overrides the browser executable. Empty uses the first
	// Chrome found on PATH.
	ChromePath string

	// AllowedTags replaces the markup tag whitelist. Empty keeps the default.
	AllowedTags []string

	// LenientParsing lets the validator recover from mismatched and
	// unclosed tags instead of rejecting the document.
	LenientParsing bool

	// PreserveFormatting keeps inline markup in section content.
	PreserveFormatting bool

	// MinTitleLength and MaxTitleLength bound accepted section titles.
	MinTitleLength int
	MaxTitleLength int

	// MinContentLength is the shortest section content that is kept.
	MinContentLength int

	// MaxTopics caps the number of topics per section.
	MaxTopics int

	// MinTopicLength is the shortest word considered as a topic.
	MinTopicLength int

	// Stopwords replaces the built-in stopword list when non-empty.
	Stopwords []string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// SOCKSProxy routes all requests through a SOCKS5 proxy ("host:port").
	// Empty uses the environment's HTTP proxy settings.
	SOCKSProxy string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// MaxCodeSize is the largest source file the code processor accepts.
	MaxCodeSize int

	// MaxTreeDepth bounds how deep a repository walk descends.
	MaxTreeDepth int

	// ReindexMaxAge is how old a repository's last index may be before it
	// is walked again.
	ReindexMaxAge time.Duration

	// GitHubToken authenticates repository API requests. Read from the
	// GITHUB_TOKEN environment variable when empty.
	GitHubToken string

	// GitHubAPIURL is the repository API endpoint.
	GitHubAPIURL string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// IndexDir is the directory of the full-text search index.
	// Defaults to a subdirectory of the XDG data directory.
	IndexDir string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, lenient
// parsing). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxConcurrent:     fetch.DefaultMaxConcurrent,
		BatchSize:         DefaultBatchSize,
		Timeout:           fetch.DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        fetch.DefaultRetryDelay,
		MaxDepth:          crawler.DefaultMaxDepth,
		MaxPages:          crawler.DefaultMaxPages,
		CrawlDelay:        crawler.DefaultDelay,
		RenderSettleDelay: DefaultRenderSettleDelay,
		LenientParsing:    true,
		MinTitleLength:    markup.DefaultMinTitleLength,
		MaxTitleLength:    markup.DefaultMaxTitleLength,
		MinContentLength:  markup.DefaultMinContentLength,
		MaxTopics:         metadata.DefaultMaxTopics,
		MinTopicLength:    metadata.DefaultMinTopicLength,
		UserAgent:         fetch.DefaultUserAgent,
		MaxBodySize:       fetch.DefaultMaxBodySize,
		MaxCodeSize:       processor.DefaultMaxCodeSize,
		MaxTreeDepth:      walker.DefaultMaxTreeDepth,
		ReindexMaxAge:     walker.DefaultMaxAge,
		GitHubAPIURL:      repohost.DefaultBaseURL,
		DBDir:             XDGDataDir(),
		IndexDir:          filepath.Join(XDGDataDir(), "index"),
	}
}

// XDGDataDir returns the XDG data directory for docingest.
// On Linux: ~/.local/share/docingest
// On macOS: ~/Library/Application Support/docingest
// On Windows: %LOCALAPPDATA%\docingest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docingest.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for docingest.
// The headless browser profile lives here.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && len(c.Repositories) == 0 {
		return ErrNoTarget
	}
	return c.ValidateSettings()
}

// ValidateSettings checks every option except the targets. Commands that
// take no targets (status) use it directly.
func (c *Config) ValidateSettings() error {
	switch {
	case c.Timeout <= 0:
		return ErrInvalidTimeout
	case c.MaxConcurrent <= 0:
		return ErrInvalidMaxConcurrent
	case c.BatchSize <= 0:
		return ErrInvalidBatchSize
	case c.MaxRetries < 0:
		return ErrInvalidMaxRetries
	case c.RetryDelay < 0:
		return ErrInvalidRetryDelay
	case c.JSONReport && c.MarkdownReport:
		return ErrConflictingReportFormats
	case c.CrawlDelay < 0:
		return ErrInvalidCrawlDelay
	case c.MaxDepth < 0:
		return ErrInvalidMaxDepth
	case c.MaxPages <= 0:
		return ErrInvalidMaxPages
	case c.MaxBodySize < 0:
		return ErrInvalidMaxBodySize
	case c.MinTitleLength < 0 || c.MaxTitleLength < c.MinTitleLength:
		return ErrInvalidTitleLength
	case c.MinContentLength < 0:
		return ErrInvalidContentLength
	case c.MaxTopics <= 0 || c.MinTopicLength <= 0:
		return ErrInvalidTopics
	case c.MaxTreeDepth <= 0:
		return ErrInvalidTreeDepth
	case c.ReindexMaxAge < 0:
		return ErrInvalidReindexAge
	}
	return nil
}

// MaxAttempts returns the total number of attempts per request.
func (c *Config) MaxAttempts() int {
	return c.MaxRetries + 1
}
