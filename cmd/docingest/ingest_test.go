package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/docingest/internal/report"
)

// newDocsSite serves a small documentation site linking to acme/widgets.
func newDocsSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/": `<html><head><title>Home</title></head><body>
<h1>Home</h1><p>Welcome to the widget documentation home page.</p>
<a href="/guide">Guide</a>
<a href="https://github.com/acme/widgets">Source</a>
</body></html>`,
		"/guide": `<html><head><title>Guide</title></head><body>
<h1>Guide</h1><p>The installation guide explains how to install widgets.</p>
</body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// newFakeAPI serves the repository API for acme/widgets.
func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"name": "widgets",
			"owner": {"login": "acme"},
			"html_url": "https://github.com/acme/widgets",
			"description": "Widget toolkit",
			"default_branch": "main",
			"stargazers_count": 42,
			"topics": ["ui"],
			"updated_at": "2025-01-02T03:04:05Z"
		}`)
	})
	mux.HandleFunc("/repos/acme/widgets/readme", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "# Widgets\n\nWidget toolkit for building interfaces.\n")
	})
	mux.HandleFunc("/repos/acme/widgets/contents", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"name": "docs", "path": "docs", "type": "dir", "sha": "d1", "size": 0}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/contents/docs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"name": "usage.md", "path": "docs/usage.md", "type": "file", "sha": "u1", "size": 60}]`)
	})
	mux.HandleFunc("/repos/acme/widgets/contents/docs/usage.md", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "# Usage\n\nCall the render function to draw a widget on screen.\n")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// emptyConfig writes an empty configuration file so the tests never pick
// up a .docingest from the home directory.
func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "docingest.yaml")
	if err := os.WriteFile(path, []byte("defaults: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readJSONReport(t *testing.T, path string) report.JSONReport {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var r report.JSONReport
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	return r
}

// TestCrawlFollowRepositories runs a crawl that follows a linked repository,
// then checks status, search and a second, fresh repository run against the
// same data directory.
func TestCrawlFollowRepositories(t *testing.T) {
	t.Parallel()

	site := newDocsSite(t)
	api := newFakeAPI(t)
	dataDir := t.TempDir()
	cfgPath := emptyConfig(t)
	reportPath := filepath.Join(t.TempDir(), "out", "crawl.json")

	_, err := run(t, "crawl",
		"--data-dir", dataDir,
		"-c", cfgPath,
		"--delay", "0s",
		"--retries", "0",
		"--follow-repos",
		"--api-url", api.URL,
		"--json",
		"-o", reportPath,
		site.URL+"/",
	)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	r := readJSONReport(t, reportPath)
	if r.Summary.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", r.Summary.Pages)
	}
	if r.Summary.Completed != 1 {
		t.Errorf("expected 1 completed repository, got %+v", r.Summary.Repos)
	}
	// Two pages, one README section and one file section.
	if r.Summary.Indexed != 4 || r.Summary.Stored != 4 {
		t.Errorf("expected 4 documents indexed and stored, got %d/%d", r.Summary.Indexed, r.Summary.Stored)
	}
	if len(r.Report.Errors) != 0 {
		t.Errorf("unexpected step errors: %v", r.Report.Errors)
	}

	t.Run("status lists the repository", func(t *testing.T) {
		out, err := run(t, "status", "--data-dir", dataDir)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(out, "acme/widgets") || !strings.Contains(out, "fresh") {
			t.Errorf("unexpected status output:\n%s", out)
		}
	})

	t.Run("status history lists the run", func(t *testing.T) {
		out, err := run(t, "status", "--data-dir", dataDir, "--history")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(out, "Ingestion runs (1)") {
			t.Errorf("unexpected history output:\n%s", out)
		}
	})

	t.Run("search finds crawled and repository sections", func(t *testing.T) {
		out, err := run(t, "search", "--data-dir", dataDir, "--json", "--content", "installation")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		var results []searchResult
		if err := json.Unmarshal([]byte(out), &results); err != nil {
			t.Fatalf("failed to decode results: %v\n%s", err, out)
		}
		if len(results) == 0 || results[0].Title != "Guide" {
			t.Fatalf("expected Guide as top hit, got %+v", results)
		}
		if !strings.Contains(results[0].Snippet, "installation guide") {
			t.Errorf("unexpected snippet %q", results[0].Snippet)
		}

		out, err = run(t, "search", "--data-dir", dataDir, "render")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(out, "Usage") {
			t.Errorf("expected repository section in results:\n%s", out)
		}
	})

	t.Run("fresh repository is skipped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "repo.json")
		_, err := run(t, "repo",
			"--data-dir", dataDir,
			"-c", cfgPath,
			"--retries", "0",
			"--api-url", api.URL,
			"--json",
			"-o", path,
			"acme/widgets",
		)
		if err != nil {
			t.Fatalf("repo failed: %v", err)
		}
		r := readJSONReport(t, path)
		if r.Summary.Skipped != 1 {
			t.Errorf("expected the repository to be skipped as fresh, got %+v", r.Summary.Repos)
		}
	})
}

// TestRepoCmd tests repository-only runs.
func TestRepoCmd(t *testing.T) {
	t.Parallel()

	t.Run("indexes and reports in text", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		out, err := run(t, "repo",
			"--data-dir", t.TempDir(),
			"-c", emptyConfig(t),
			"--retries", "0",
			"--api-url", api.URL,
			"--include", "docs",
			"https://github.com/acme/widgets",
		)
		if err != nil {
			t.Fatalf("repo failed: %v", err)
		}
		if !strings.Contains(out, "DOCINGEST REPORT") || !strings.Contains(out, "acme/widgets") {
			t.Errorf("unexpected report:\n%s", out)
		}
	})

	t.Run("failed repository is reported, not fatal", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		path := filepath.Join(t.TempDir(), "repo.json")
		_, err := run(t, "repo",
			"--data-dir", t.TempDir(),
			"-c", emptyConfig(t),
			"--retries", "0",
			"--api-url", api.URL,
			"--json",
			"-o", path,
			"acme/missing",
		)
		if err != nil {
			t.Fatalf("repo failed: %v", err)
		}
		r := readJSONReport(t, path)
		if r.Summary.Failed != 1 {
			t.Errorf("expected 1 failed repository, got %+v", r.Summary.Repos)
		}
	})

	t.Run("registry entries are indexed without arguments", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		cfgPath := filepath.Join(t.TempDir(), ".docingest")
		cfg := "repositories:\n  - owner: acme\n    name: widgets\n    domain: ui\n    importance: 4\n"
		if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
			t.Fatal(err)
		}

		dataDir := t.TempDir()
		if _, err := run(t, "repo",
			"--data-dir", dataDir,
			"-c", cfgPath,
			"--retries", "0",
			"--api-url", api.URL,
		); err != nil {
			t.Fatalf("repo failed: %v", err)
		}

		out, err := run(t, "status", "--data-dir", dataDir, "--json")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var statuses []repositoryStatus
		if err := json.Unmarshal([]byte(out), &statuses); err != nil {
			t.Fatalf("failed to decode status: %v", err)
		}
		if len(statuses) != 1 || statuses[0].Domain != "ui" || statuses[0].Importance != 4 {
			t.Errorf("expected registry fields to be stored, got %+v", statuses)
		}
	})

	t.Run("rejects invalid coordinates", func(t *testing.T) {
		t.Parallel()

		_, err := run(t, "repo", "--data-dir", t.TempDir(), "-c", emptyConfig(t), "not-a-repo")
		if err == nil || !strings.Contains(err.Error(), "invalid repository") {
			t.Errorf("expected invalid repository error, got %v", err)
		}
	})

	t.Run("requires a repository", func(t *testing.T) {
		t.Parallel()

		_, err := run(t, "repo", "--data-dir", t.TempDir(), "-c", emptyConfig(t))
		if err == nil {
			t.Error("expected error without repositories")
		}
	})
}

// TestCrawlCmdValidation tests configuration errors of the crawl command.
func TestCrawlCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "conflicting report formats",
			args: []string{"--json", "--markdown"},
			want: "configuration error",
		},
		{
			name: "invalid batch size",
			args: []string{"--batch", "0"},
			want: "configuration error",
		},
		{
			name: "unreachable proxy",
			args: []string{"--socks-proxy", "127.0.0.1:1"},
			want: "proxy check failed",
		},
		{
			name: "missing explicit config file",
			args: []string{"-c", "/nonexistent/docingest.yaml"},
			want: "configuration file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"crawl", "--data-dir", t.TempDir()}, tt.args...)
			if !slices.Contains(tt.args, "-c") {
				args = append(args, "-c", emptyConfig(t))
			}
			args = append(args, "https://docs.example.com")

			_, err := run(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
