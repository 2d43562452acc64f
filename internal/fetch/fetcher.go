package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/docingest/internal/fault"
)

// Default Fetcher settings.
const (
	DefaultMaxConcurrent = 5
	DefaultTimeout       = 30 * time.Second
	DefaultMaxAttempts   = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultMaxBodySize   = 10 * 1024 * 1024 // 10MB
	DefaultUserAgent     = "docingest/1.0 (+https://github.com/nao1215/docingest)"
)

// Response is the result of a successful fetch.
type Response struct {
	// Content is the response body, limited to the configured size.
	Content string

	// ContentType is the Content-Type header value.
	ContentType string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// Timestamp is when the response was received.
	Timestamp time.Time
}

// FetchOptions are per-call overrides.
type FetchOptions struct {
	// Headers are added to the request.
	Headers map[string]string

	// Timeout overrides the per-attempt timeout when positive.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string

	// AllowEmpty accepts an empty 200 body. Raw file downloads use it.
	AllowEmpty bool
}

// Fetcher acquires content under a concurrency cap with retries.
// It is safe for concurrent use.
type Fetcher struct {
	client        *http.Client
	sem           *semaphore.Weighted
	maxConcurrent int64
	inFlight      atomic.Int64
	timeout       time.Duration
	userAgent     string
	maxBodySize   int64
	maxAttempts   int
	retryDelay    time.Duration
	renderer      Renderer
	metrics       *Metrics
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithMaxConcurrent sets the maximum number of in-flight requests.
// Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrent = int64(n)
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum number of body bytes read.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithRetry sets the total number of attempts and the base delay.
// The delay before attempt k+1 is k*baseDelay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.maxAttempts = maxAttempts
		f.retryDelay = baseDelay
	}
}

// WithRenderer sets the renderer used by Render.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) {
		f.renderer = r
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		maxConcurrent: DefaultMaxConcurrent,
		timeout:       DefaultTimeout,
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
		maxAttempts:   DefaultMaxAttempts,
		retryDelay:    DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = NewHTTPClient(nil)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.sem = semaphore.NewWeighted(f.maxConcurrent)

	return f
}

// InFlight returns the number of requests currently holding a slot.
func (f *Fetcher) InFlight() int {
	return int(f.inFlight.Load())
}

// MaxConcurrent returns the concurrency cap.
func (f *Fetcher) MaxConcurrent() int {
	return int(f.maxConcurrent)
}

// HasRenderer reports whether Render can be used.
func (f *Fetcher) HasRenderer() bool {
	return f.renderer != nil
}

// Fetch retrieves rawURL.
// Transient failures are retried; the returned error is always a
// *fault.Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Response, error) {
	if err := validateURL(rawURL); err != nil {
		f.metrics.observeOutcome(fault.KindInvalidInput.String())
		return nil, err
	}

	var resp *Response
	err := fault.Retry(ctx, f.policy(rawURL), func(ctx context.Context, attempt int) error {
		r, ferr := f.attempt(ctx, rawURL, opts)
		if ferr != nil {
			return ferr.With("attempt", attempt)
		}
		resp = r
		return nil
	})
	if err != nil {
		f.metrics.observeOutcome(fault.KindOf(err).String())
		return nil, err
	}

	if err := validateResponse(rawURL, resp, opts.AllowEmpty); err != nil {
		f.metrics.observeOutcome(fault.KindValidation.String())
		return nil, err
	}

	f.metrics.observeOutcome(outcomeOK)
	return resp, nil
}

// Render retrieves rawURL through the configured Renderer.
// It shares the concurrency cap and retry policy with Fetch.
func (f *Fetcher) Render(ctx context.Context, rawURL string) (*Response, error) {
	if f.renderer == nil {
		return nil, fault.New(fault.KindInternal, "no renderer configured").With("url", rawURL)
	}
	if err := validateURL(rawURL); err != nil {
		f.metrics.observeOutcome(fault.KindInvalidInput.String())
		return nil, err
	}

	var content string
	err := fault.Retry(ctx, f.policy(rawURL), func(ctx context.Context, attempt int) error {
		c, ferr := f.renderAttempt(ctx, rawURL)
		if ferr != nil {
			return ferr.With("attempt", attempt)
		}
		content = c
		return nil
	})
	if err != nil {
		f.metrics.observeOutcome(fault.KindOf(err).String())
		return nil, err
	}

	resp := &Response{
		Content:     content,
		ContentType: "text/html; charset=utf-8",
		StatusCode:  http.StatusOK,
		Headers:     http.Header{},
		Timestamp:   time.Now(),
	}
	if err := validateResponse(rawURL, resp, false); err != nil {
		f.metrics.observeOutcome(fault.KindValidation.String())
		return nil, err
	}

	f.metrics.observeOutcome(outcomeOK)
	return resp, nil
}

func (f *Fetcher) policy(rawURL string) fault.RetryPolicy {
	return fault.RetryPolicy{
		MaxAttempts: f.maxAttempts,
		BaseDelay:   f.retryDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			f.metrics.observeRetry()
			f.logger.Debug("retrying fetch",
				"url", rawURL,
				"attempt", attempt,
				"kind", fault.KindOf(err).String(),
				"delay", delay,
				"in_flight", f.InFlight(),
				"max_concurrent", f.MaxConcurrent(),
			)
		},
	}
}

// acquire takes a fetch slot. The slot must be released with release.
func (f *Fetcher) acquire(ctx context.Context) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	f.inFlight.Add(1)
	f.metrics.slotAcquired()
	return nil
}

func (f *Fetcher) release() {
	f.metrics.slotReleased()
	f.inFlight.Add(-1)
	f.sem.Release(1)
}

// attempt performs a single HTTP request while holding a slot.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, opts FetchOptions) (*Response, *fault.Error) {
	if err := f.acquire(ctx); err != nil {
		return nil, fault.Wrap(fault.KindTimeout, err, "waiting for fetch slot").With("url", rawURL)
	}
	defer f.release()

	timeout := f.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindInvalidInput, err, "cannot build request").With("url", rawURL)
	}

	userAgent := f.userAgent
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown,text/plain;q=0.9,*/*;q=0.8")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	defer func() {
		f.metrics.observeAttempt("http", time.Since(start))
	}()

	httpResp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err).With("url", rawURL)
	}
	defer httpResp.Body.Close()

	// One byte past the limit distinguishes "exactly at the limit" from
	// "too large" without buffering the whole body.
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, classifyTransport(ctx, err).With("url", rawURL)
	}

	if ferr := classifyStatus(httpResp.StatusCode); ferr != nil {
		return nil, ferr.With("url", rawURL)
	}

	if int64(len(body)) > f.maxBodySize {
		return nil, fault.New(fault.KindValidation, "content too large").
			With("url", rawURL).
			With("size_limit", f.maxBodySize)
	}

	return &Response{
		Content:     string(body),
		ContentType: httpResp.Header.Get("Content-Type"),
		StatusCode:  httpResp.StatusCode,
		Headers:     httpResp.Header,
		Timestamp:   time.Now(),
	}, nil
}

// renderAttempt renders a page while holding a slot.
func (f *Fetcher) renderAttempt(ctx context.Context, rawURL string) (string, *fault.Error) {
	if err := f.acquire(ctx); err != nil {
		return "", fault.Wrap(fault.KindTimeout, err, "waiting for fetch slot").With("url", rawURL)
	}
	defer f.release()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := f.renderer.Render(ctx, rawURL)
	f.metrics.observeAttempt("render", time.Since(start))
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			return "", fe
		}
		return "", classifyTransport(ctx, err).With("url", rawURL)
	}
	return content, nil
}

// classifyTransport maps an error without an HTTP response to a fault kind.
func classifyTransport(ctx context.Context, err error) *fault.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return fault.Wrap(fault.KindTimeout, err, "request aborted or timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.Wrap(fault.KindTimeout, err, "request timed out")
	}
	return fault.Wrap(fault.KindNetwork, err, "no response received")
}

// classifyStatus maps a non-2xx status to a fault kind. 2xx returns nil.
func classifyStatus(status int) *fault.Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fault.New(fault.KindNotFound, "resource not found").WithStatus(status)
	case status >= 500:
		return fault.Newf(fault.KindServer, "server responded %d", status).WithStatus(status)
	default:
		return fault.Newf(fault.KindNetwork, "unexpected response %d", status).
			WithStatus(0).
			With("http_status", status)
	}
}

// validateURL rejects anything that is not an absolute http(s) URL.
func validateURL(rawURL string) *fault.Error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fault.Wrap(fault.KindInvalidInput, err, "invalid URL").With("url", rawURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fault.New(fault.KindInvalidInput, "URL must be absolute http(s)").With("url", rawURL)
	}
	return nil
}

// validateResponse checks a response that survived the retry loop.
func validateResponse(rawURL string, resp *Response, allowEmpty bool) error {
	if resp.StatusCode != http.StatusOK {
		return fault.Newf(fault.KindValidation, "expected status 200, got %d", resp.StatusCode).
			With("url", rawURL).
			With("http_status", resp.StatusCode)
	}
	if resp.Content == "" && !allowEmpty {
		return fault.New(fault.KindValidation, "empty response body").With("url", rawURL)
	}
	return nil
}
