package fetch

import (
	"net/http"
	"time"
)

// maxRedirects bounds the redirect chain followed by clients built here.
const maxRedirects = 10

// NewHTTPClient creates the HTTP client used by the Fetcher.
// The headers are added to every request, including redirects, unless the
// request already carries them. This is how a static credential such as an
// API token is attached.
//
// Design decision: We use a custom RoundTripper to inject headers rather
// than modifying each request. This ensures all requests (including
// redirects) include the configured values.
func NewHTTPClient(headers map[string]string) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var rt http.RoundTripper = transport
	if len(headers) > 0 {
		rt = &headerInjectingTransport{base: transport, headers: headers}
	}

	return &http.Client{
		Transport: rt,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(clone)
}
