package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/docingest/internal/fault"
)

// newTestFetcher returns a Fetcher with fast retries.
func newTestFetcher(opts ...Option) *Fetcher {
	base := []Option{
		WithRetry(3, time.Millisecond),
		WithTimeout(2 * time.Second),
	}
	return New(append(base, opts...)...)
}

// TestFetch tests successful fetches.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns content and headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "test-agent" {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("X-Custom") != "value" {
				t.Errorf("expected custom header")
			}
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("X-Test", "yes")
			_, _ = w.Write([]byte("<h1>Hello</h1>"))
		}))
		defer server.Close()

		f := newTestFetcher(WithUserAgent("test-agent"))
		resp, err := f.Fetch(context.Background(), server.URL, FetchOptions{
			Headers: map[string]string{"X-Custom": "value"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.Content != "<h1>Hello</h1>" {
			t.Errorf("unexpected content %q", resp.Content)
		}
		if resp.ContentType != "text/html" {
			t.Errorf("unexpected content type %q", resp.ContentType)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("unexpected status %d", resp.StatusCode)
		}
		if resp.Headers.Get("X-Test") != "yes" {
			t.Error("expected response headers to be kept")
		}
		if resp.Timestamp.IsZero() {
			t.Error("expected timestamp")
		}
	})

	t.Run("per-call user agent overrides default", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
		}))
		defer server.Close()

		f := newTestFetcher()
		resp, err := f.Fetch(context.Background(), server.URL, FetchOptions{UserAgent: "override"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "override" {
			t.Errorf("expected override user agent, got %q", resp.Content)
		}
	})

	t.Run("limits body size", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
		}))
		defer server.Close()

		f := newTestFetcher(WithMaxBodySize(10))
		_, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
		if !fault.IsKind(err, fault.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		var fe *fault.Error
		if !errors.As(err, &fe) || fe.Context["size_limit"] != int64(10) {
			t.Errorf("expected size_limit context, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("oversized body must not be retried, got %d requests", hits.Load())
		}

		exact := newTestFetcher(WithMaxBodySize(1000))
		resp, err := exact.Fetch(context.Background(), server.URL, FetchOptions{})
		if err != nil {
			t.Fatalf("unexpected error at the limit: %v", err)
		}
		if len(resp.Content) != 1000 {
			t.Errorf("expected 1000 bytes, got %d", len(resp.Content))
		}
	})

	t.Run("injects client headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.Header.Get("Authorization")))
		}))
		defer server.Close()

		client := NewHTTPClient(map[string]string{"Authorization": "Bearer secret"})
		f := newTestFetcher(WithHTTPClient(client))
		resp, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "Bearer secret" {
			t.Errorf("expected injected header, got %q", resp.Content)
		}
	})
}

// TestFetchClassification tests how failures are classified and retried.
func TestFetchClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   fault.Kind
		wantStatus int
		wantCalls  int32
	}{
		{"not found is not retried", http.StatusNotFound, "missing", fault.KindNotFound, 404, 1},
		{"server error is retried", http.StatusBadGateway, "bad", fault.KindServer, 502, 3},
		{"other status is network error", http.StatusForbidden, "no", fault.KindNetwork, 0, 3},
		{"empty body fails validation once", http.StatusOK, "", fault.KindValidation, 400, 1},
		{"non-200 success fails validation once", http.StatusAccepted, "queued", fault.KindValidation, 400, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f := newTestFetcher()
			_, err := f.Fetch(context.Background(), server.URL, FetchOptions{})

			var fe *fault.Error
			if !errors.As(err, &fe) {
				t.Fatalf("expected *fault.Error, got %v", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, fe.Kind)
			}
			if fe.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, fe.Status)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}

	t.Run("recovers after transient failure", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		f := newTestFetcher()
		resp, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "ok" || calls.Load() != 2 {
			t.Errorf("unexpected result %q after %d calls", resp.Content, calls.Load())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		f := New(WithRetry(1, 0), WithTimeout(20*time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
		if !fault.IsKind(err, fault.KindTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
	})

	t.Run("no response is network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		serverURL := server.URL
		server.Close()

		f := New(WithRetry(1, 0), WithTimeout(time.Second))
		_, err := f.Fetch(context.Background(), serverURL, FetchOptions{})
		if !fault.IsKind(err, fault.KindNetwork) {
			t.Errorf("expected network error, got %v", err)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()

		f := newTestFetcher()
		for _, u := range []string{"", "/relative", "ftp://example.com/file", "http://"} {
			_, err := f.Fetch(context.Background(), u, FetchOptions{})
			if !fault.IsKind(err, fault.KindInvalidInput) {
				t.Errorf("%q: expected invalid input, got %v", u, err)
			}
		}
	})
}

// TestFetchConcurrencyCap tests the semaphore bound.
func TestFetchConcurrencyCap(t *testing.T) {
	t.Parallel()

	var current, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		current.Add(-1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := newTestFetcher(WithMaxConcurrent(2))

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), server.URL, FetchOptions{}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent requests, got %d", peak.Load())
	}
	if f.InFlight() != 0 {
		t.Errorf("expected all slots released, got %d in flight", f.InFlight())
	}
	if f.MaxConcurrent() != 2 {
		t.Errorf("unexpected cap %d", f.MaxConcurrent())
	}
}

// TestFetchMetrics tests metric recording.
func TestFetchMetrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	f := newTestFetcher(WithMetrics(m))
	if _, err := f.Fetch(context.Background(), server.URL, FetchOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = f.Fetch(context.Background(), server.URL+"/missing", FetchOptions{})

	if got := testutil.ToFloat64(m.requests.WithLabelValues(outcomeOK)); got != 1 {
		t.Errorf("expected 1 ok request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(fault.KindNotFound.String())); got != 1 {
		t.Errorf("expected 1 not found request, got %v", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("expected in-flight gauge 0, got %v", got)
	}

	if _, err := NewMetrics(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

// TestRender tests rendering through the Fetcher.
func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("without renderer", func(t *testing.T) {
		t.Parallel()

		f := newTestFetcher()
		if f.HasRenderer() {
			t.Error("expected no renderer")
		}
		_, err := f.Render(context.Background(), "http://example.com")
		if !fault.IsKind(err, fault.KindInternal) {
			t.Errorf("expected internal error, got %v", err)
		}
	})

	t.Run("retries renderer failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		renderer := RendererFunc(func(_ context.Context, url string) (string, error) {
			if calls.Add(1) < 2 {
				return "", errors.New("browser crashed")
			}
			return "<html><body><h1>" + url + "</h1></body></html>", nil
		})

		f := newTestFetcher(WithRenderer(renderer))
		resp, err := f.Render(context.Background(), "http://example.com/app")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(resp.Content, "http://example.com/app") {
			t.Errorf("unexpected content %q", resp.Content)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("unexpected status %d", resp.StatusCode)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("empty render fails validation", func(t *testing.T) {
		t.Parallel()

		renderer := RendererFunc(func(context.Context, string) (string, error) {
			return "", nil
		})
		f := newTestFetcher(WithRenderer(renderer))
		_, err := f.Render(context.Background(), "http://example.com")
		if !fault.IsKind(err, fault.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

// TestClassifyStatus tests status classification directly.
func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	if classifyStatus(200) != nil || classifyStatus(204) != nil {
		t.Error("expected 2xx to be accepted")
	}
	fe := classifyStatus(401)
	if fe.Kind != fault.KindNetwork || fe.Status != 0 || fe.Context["http_status"] != 401 {
		t.Errorf("unexpected classification %+v", fe)
	}
}
