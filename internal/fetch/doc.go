// Package fetch acquires raw content over HTTP under a concurrency cap.
//
// # Architecture
//
// The Fetcher is shared by the site crawler and the repository walker. Every
// request holds a slot of a counting semaphore for the duration of one
// attempt, so the total number of in-flight requests across all callers never
// exceeds the configured cap. Attempts are retried through fault.Retry with
// the default predicate (network, timeout and server errors only).
//
// Transport failures are classified into fault kinds:
//   - context deadline or cancellation, net timeouts: TIMEOUT
//   - HTTP 404: NOT_FOUND
//   - HTTP 5xx: SERVER_ERROR
//   - no response at all: NETWORK_ERROR
//   - any other non-2xx status: NETWORK_ERROR with status 0
//
// A successful response is validated after the retry loop (status 200 and a
// non-empty body). Validation failures are never retried.
//
// # Rendering
//
// Pages that build their content client-side can be fetched through a
// Renderer. ChromeRenderer drives a headless Chrome via chromedp: it
// navigates, waits a fixed settle delay and serializes the resulting DOM.
// Rendering goes through the same semaphore and retry policy as Fetch.
//
// # Proxies
//
// By default clients honor the HTTP(S)_PROXY environment variables.
// NewSOCKSHTTPClient dials every connection through a SOCKS5 proxy instead;
// CheckSOCKSProxy verifies the proxy answers an unauthenticated greeting
// before a run starts.
//
// # Usage
//
//	f := fetch.New(fetch.WithMaxConcurrent(5), fetch.WithTimeout(30*time.Second))
//	resp, err := f.Fetch(ctx, "https://example.com/docs", fetch.FetchOptions{})
package fetch
