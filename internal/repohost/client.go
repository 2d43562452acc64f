package repohost

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
)

// DefaultBaseURL is the GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// Accept headers of the GitHub API.
const (
	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw+json"
	apiVersion = "2022-11-28"
)

// Fetcher is the subset of fetch.Fetcher used by the client.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.FetchOptions) (*fetch.Response, error)
}

// Client is a GitHub REST client.
type Client struct {
	fetcher Fetcher
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API endpoint (for GitHub Enterprise or tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithToken sets the static bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a Client that issues requests through f.
func NewClient(f Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher: f,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// repoResponse mirrors the fields of GET /repos/{owner}/{repo} we keep.
type repoResponse struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	HTMLURL         string    `json:"html_url"`
	Description     string    `json:"description"`
	DefaultBranch   string    `json:"default_branch"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Topics          []string  `json:"topics"`
	Size            int       `json:"size"`
	UpdatedAt       time.Time `json:"updated_at"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
		Name   string `json:"name"`
	} `json:"license"`
}

// contentEntry mirrors one item of GET /repos/{owner}/{repo}/contents/{path}.
type contentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

// Metadata returns repository metadata. Registry fields (domain,
// importance, tags) and LastIndexed are left for the caller.
func (c *Client) Metadata(ctx context.Context, owner, name string) (*model.RepositoryMetadata, error) {
	resp, err := c.get(ctx, c.repoURL(owner, name, ""), acceptJSON, false)
	if err != nil {
		return nil, err
	}

	var r repoResponse
	if err := json.Unmarshal([]byte(resp.Content), &r); err != nil {
		return nil, fault.Wrap(fault.KindParse, err, "cannot decode repository metadata").
			With("repository", owner+"/"+name)
	}

	meta := &model.RepositoryMetadata{
		RepositoryConfig: model.RepositoryConfig{Owner: owner, Name: name},
		URL:              r.HTMLURL,
		Description:      r.Description,
		DefaultBranch:    r.DefaultBranch,
		Stars:            r.StargazersCount,
		Forks:            r.ForksCount,
		OpenIssues:       r.OpenIssuesCount,
		Topics:           r.Topics,
		Size:             r.Size,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Owner.Login != "" {
		meta.Owner = r.Owner.Login
	}
	if r.Name != "" {
		meta.Name = r.Name
	}
	if r.License != nil {
		meta.License = r.License.SPDXID
		if meta.License == "" || meta.License == "NOASSERTION" {
			meta.License = r.License.Name
		}
	}
	if meta.Topics == nil {
		meta.Topics = []string{}
	}
	return meta, nil
}

// Readme returns the raw README text, or "" when the repository has none.
func (c *Client) Readme(ctx context.Context, owner, name string) (string, error) {
	resp, err := c.get(ctx, c.repoURL(owner, name, "/readme"), acceptRaw, true)
	if err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return "", nil
		}
		return "", err
	}
	return resp.Content, nil
}

// File returns the raw text of the file at path.
func (c *Client) File(ctx context.Context, owner, name, path string) (string, error) {
	resp, err := c.get(ctx, c.contentsURL(owner, name, path), acceptRaw, true)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// List returns the entries of the directory at path ("" for the root).
// Listing a file path returns INVALID_INPUT.
func (c *Client) List(ctx context.Context, owner, name, path string) ([]model.TreeEntry, error) {
	resp, err := c.get(ctx, c.contentsURL(owner, name, path), acceptJSON, false)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(resp.Content)
	if !strings.HasPrefix(body, "[") {
		return nil, fault.New(fault.KindInvalidInput, "path is not a directory").
			With("repository", owner+"/"+name).
			With("path", path)
	}

	var raw []contentEntry
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fault.Wrap(fault.KindParse, err, "cannot decode directory listing").
			With("repository", owner+"/"+name).
			With("path", path)
	}

	entries := make([]model.TreeEntry, 0, len(raw))
	for _, e := range raw {
		var typ model.TreeEntryType
		switch e.Type {
		case "file":
			typ = model.TreeEntryFile
		case "dir":
			typ = model.TreeEntryDir
		default:
			// symlinks and submodules are not walked
			continue
		}
		entries = append(entries, model.TreeEntry{
			Name: e.Name,
			Path: e.Path,
			Type: typ,
			SHA:  e.SHA,
			Size: e.Size,
		})
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string, allowEmpty bool) (*fetch.Response, error) {
	headers := map[string]string{
		"Accept":               accept,
		"X-GitHub-Api-Version": apiVersion,
	}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	return c.fetcher.Fetch(ctx, rawURL, fetch.FetchOptions{
		Headers:    headers,
		AllowEmpty: allowEmpty,
	})
}

func (c *Client) repoURL(owner, name, suffix string) string {
	return c.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + suffix
}

func (c *Client) contentsURL(owner, name, path string) string {
	return c.repoURL(owner, name, "/contents"+escapePath(path))
}

// escapePath escapes each segment of a repository path and prefixes "/"
// unless the path is empty.
func escapePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}
