package repohost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
)

// newTestServer serves a fake GitHub API for the acme/widgets repository.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "widgets",
			"owner": {"login": "acme"},
			"html_url": "https://github.com/acme/widgets",
			"description": "Widget toolkit",
			"default_branch": "main",
			"stargazers_count": 42,
			"forks_count": 7,
			"open_issues_count": 3,
			"topics": ["ui", "toolkit"],
			"size": 1024,
			"updated_at": "2025-01-02T03:04:05Z",
			"license": {"spdx_id": "MIT", "name": "MIT License"}
		}`))
	})
	mux.HandleFunc("/repos/acme/widgets/readme", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != acceptRaw {
			t.Errorf("expected raw accept header, got %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte("# Widgets\n\nToolkit for widgets."))
	})
	mux.HandleFunc("/repos/acme/empty/readme", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/repos/acme/widgets/contents", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name": "README.md", "path": "README.md", "type": "file", "sha": "a1", "size": 30},
			{"name": "docs", "path": "docs", "type": "dir", "sha": "b2", "size": 0},
			{"name": "vendor", "path": "vendor", "type": "submodule", "sha": "c3", "size": 0}
		]`))
	})
	mux.HandleFunc("/repos/acme/widgets/contents/docs/intro.md", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == acceptRaw {
			_, _ = w.Write([]byte("# Intro"))
			return
		}
		_, _ = w.Write([]byte(`{"name": "intro.md", "path": "docs/intro.md", "type": "file", "sha": "d4"}`))
	})
	mux.HandleFunc("/repos/acme/widgets/contents/empty.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *Client {
	f := fetch.New(fetch.WithRetry(1, time.Millisecond), fetch.WithTimeout(2*time.Second))
	return NewClient(f, WithBaseURL(serverURL+"/"), WithToken("secret"))
}

// TestClientMetadata tests repository metadata retrieval.
func TestClientMetadata(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	defer server.Close()

	meta, err := newTestClient(server.URL).Metadata(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Owner != "acme" || meta.Name != "widgets" {
		t.Errorf("unexpected coordinate %s/%s", meta.Owner, meta.Name)
	}
	if meta.Stars != 42 || meta.Forks != 7 || meta.OpenIssues != 3 || meta.Size != 1024 {
		t.Errorf("unexpected counts %+v", meta)
	}
	if meta.DefaultBranch != "main" || meta.License != "MIT" || meta.Description != "Widget toolkit" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if len(meta.Topics) != 2 {
		t.Errorf("unexpected topics %v", meta.Topics)
	}
	if meta.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be parsed")
	}
}

// TestClientMetadataWithoutToken tests that the token is what authorizes.
func TestClientMetadataWithoutToken(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	defer server.Close()

	f := fetch.New(fetch.WithRetry(1, 0))
	_, err := NewClient(f, WithBaseURL(server.URL)).Metadata(context.Background(), "acme", "widgets")
	if !fault.IsKind(err, fault.KindNetwork) {
		t.Errorf("expected network error for 401, got %v", err)
	}
}

// TestClientReadme tests README retrieval.
func TestClientReadme(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(server.URL)

	readme, err := client.Readme(context.Background(), "acme", "widgets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if readme != "# Widgets\n\nToolkit for widgets." {
		t.Errorf("unexpected readme %q", readme)
	}

	readme, err = client.Readme(context.Background(), "acme", "empty")
	if err != nil {
		t.Fatalf("expected missing README not to be an error, got %v", err)
	}
	if readme != "" {
		t.Errorf("expected empty readme, got %q", readme)
	}
}

// TestClientList tests directory listings.
func TestClientList(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(server.URL)

	entries, err := client.List(context.Background(), "acme", "widgets", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (submodule skipped), got %d", len(entries))
	}
	if entries[0].Type != model.TreeEntryFile || entries[1].Type != model.TreeEntryDir {
		t.Errorf("unexpected entry types %+v", entries)
	}
	if entries[0].SHA != "a1" || entries[0].Size != 30 {
		t.Errorf("unexpected entry %+v", entries[0])
	}

	_, err = client.List(context.Background(), "acme", "widgets", "docs/intro.md")
	if !fault.IsKind(err, fault.KindInvalidInput) {
		t.Errorf("expected invalid input when listing a file, got %v", err)
	}

	_, err = client.List(context.Background(), "acme", "widgets", "missing")
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// TestClientFile tests raw file retrieval.
func TestClientFile(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	defer server.Close()
	client := newTestClient(server.URL)

	content, err := client.File(context.Background(), "acme", "widgets", "/docs/intro.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "# Intro" {
		t.Errorf("unexpected content %q", content)
	}

	content, err = client.File(context.Background(), "acme", "widgets", "empty.txt")
	if err != nil {
		t.Fatalf("expected empty file to be accepted, got %v", err)
	}
	if content != "" {
		t.Errorf("expected empty content, got %q", content)
	}
}

// TestParseRepositoryURL tests repository reference parsing.
func TestParseRepositoryURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		ok    bool
		owner string
		name  string
	}{
		{"https://github.com/acme/widgets", true, "acme", "widgets"},
		{"https://github.com/acme/widgets.git", true, "acme", "widgets"},
		{"https://www.github.com/acme/widgets/tree/main/docs", true, "acme", "widgets"},
		{"http://github.com/acme/widgets/", true, "acme", "widgets"},
		{"https://github.com/acme", false, "", ""},
		{"https://github.com/orgs/acme", false, "", ""},
		{"https://github.com/features/actions", false, "", ""},
		{"https://gitlab.com/acme/widgets", false, "", ""},
		{"git@github.com:acme/widgets.git", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			ref, ok := ParseRepositoryURL(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseRepositoryURL(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && (ref.Owner != tt.owner || ref.Name != tt.name) {
				t.Errorf("unexpected ref %+v", ref)
			}
		})
	}
}

// TestParseCoordinate tests owner/name parsing.
func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	if ref, ok := ParseCoordinate("acme/widgets"); !ok || ref.Key() != "acme/widgets" {
		t.Errorf("unexpected result %+v %v", ref, ok)
	}
	if ref, ok := ParseCoordinate("https://github.com/acme/widgets"); !ok || ref.Name != "widgets" {
		t.Errorf("unexpected result %+v %v", ref, ok)
	}
	for _, bad := range []string{"acme", "a/b/c", "/widgets"} {
		if _, ok := ParseCoordinate(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
