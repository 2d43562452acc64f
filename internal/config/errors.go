package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when neither a site URL nor a repository is given.
	ErrNoTarget = errors.New("no target specified: provide a URL or an owner/name repository")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxConcurrent is returned when the fetch concurrency cap is not positive.
	ErrInvalidMaxConcurrent = errors.New("invalid max concurrent requests: must be positive")

	// ErrInvalidBatchSize is returned when the repository batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	// Depth 0 means only the start page is fetched.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidTitleLength is returned when the title bounds are negative
	// or the minimum exceeds the maximum.
	ErrInvalidTitleLength = errors.New("invalid title length: need 0 <= min <= max")

	// ErrInvalidContentLength is returned when the minimum content length is negative.
	ErrInvalidContentLength = errors.New("invalid min content length: must be non-negative")

	// ErrInvalidTopics is returned when the topic settings are not positive.
	ErrInvalidTopics = errors.New("invalid topic settings: max topics and min topic length must be positive")

	// ErrInvalidTreeDepth is returned when the repository walk depth is not positive.
	ErrInvalidTreeDepth = errors.New("invalid max tree depth: must be positive")

	// ErrInvalidReindexAge is returned when the reindex age is negative.
	ErrInvalidReindexAge = errors.New("invalid reindex max age: must be non-negative")
)
