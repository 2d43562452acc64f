package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultSettleDelay is how long the renderer waits after navigation before
// serializing the DOM.
const DefaultSettleDelay = 2 * time.Second

// Renderer turns a URL into markup after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) (string, error)

// Render calls fn.
func (fn RendererFunc) Render(ctx context.Context, url string) (string, error) {
	return fn(ctx, url)
}

// ChromeRenderer renders pages in a headless Chrome through chromedp.
// Each call starts its own browser context, so concurrent calls are
// independent; the Fetcher semaphore bounds how many run at once.
type ChromeRenderer struct {
	settle    time.Duration
	userAgent string
	execPath  string
}

// ChromeOption configures a ChromeRenderer.
type ChromeOption func(*ChromeRenderer)

// WithSettleDelay sets the post-navigation wait.
func WithSettleDelay(d time.Duration) ChromeOption {
	return func(r *ChromeRenderer) {
		r.settle = d
	}
}

// WithRendererUserAgent sets the browser User-Agent.
func WithRendererUserAgent(ua string) ChromeOption {
	return func(r *ChromeRenderer) {
		r.userAgent = ua
	}
}

// WithExecPath sets the Chrome executable. Empty means auto-detect.
func WithExecPath(path string) ChromeOption {
	return func(r *ChromeRenderer) {
		r.execPath = path
	}
}

// NewChromeRenderer creates a ChromeRenderer.
func NewChromeRenderer(opts ...ChromeOption) *ChromeRenderer {
	r := &ChromeRenderer{
		settle:    DefaultSettleDelay,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render navigates to url, waits for the settle delay and returns the
// serialized document.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if r.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.userAgent))
	}
	if r.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
