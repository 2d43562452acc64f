package model

import (
	"strings"
	"time"
)

// RepositoryConfig is a registry entry for a hosted repository.
// Owner and Name together form the natural key.
type RepositoryConfig struct {
	Owner      string   `json:"owner" yaml:"owner"`
	Name       string   `json:"name" yaml:"name"`
	Domain     string   `json:"domain" yaml:"domain"`
	Importance int      `json:"importance" yaml:"importance"`
	IsOfficial bool     `json:"is_official" yaml:"is_official"`
	Tags       []string `json:"tags,omitempty" yaml:"tags"`
}

// Key returns the "owner/name" registry key.
func (c RepositoryConfig) Key() string {
	return RepositoryKey(c.Owner, c.Name)
}

// RepositoryKey builds the "owner/name" key used by the registry,
// the indexing session and the storage layer.
func RepositoryKey(owner, name string) string {
	return strings.ToLower(owner) + "/" + strings.ToLower(name)
}

// DefaultRepositoryConfig synthesizes a registry entry for a repository
// that was not configured explicitly.
func DefaultRepositoryConfig(owner, name string) RepositoryConfig {
	return RepositoryConfig{
		Owner:      owner,
		Name:       name,
		Domain:     "general",
		Importance: 1,
		Tags:       []string{},
	}
}

// RepositoryMetadata is the registry entry enriched with data from the
// hosting service. It is refreshed as a whole on every (re)index.
type RepositoryMetadata struct {
	RepositoryConfig

	URL           string    `json:"url"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	Topics        []string  `json:"topics,omitempty"`
	Size          int       `json:"size"`
	License       string    `json:"license,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastIndexed   time.Time `json:"last_indexed"`
}

// ContentType distinguishes README content from ordinary files.
type ContentType string

// Repository content types.
const (
	ContentTypeReadme ContentType = "readme"
	ContentTypeFile   ContentType = "file"
)

// ContentMetadata describes a stored repository file.
type ContentMetadata struct {
	LastModified time.Time `json:"last_modified"`
	Size         int       `json:"size"`
	Language     string    `json:"language,omitempty"`
	SHA          string    `json:"sha,omitempty"`
}

// RepositoryContent is a processed file of a repository.
// ID is repositoryID + "/" + path; storing the same ID again overwrites.
type RepositoryContent struct {
	ID            string             `json:"id"`
	RepositoryID  string             `json:"repository_id"`
	Path          string             `json:"path"`
	Type          ContentType        `json:"type"`
	Content       string             `json:"content"`
	ParsedContent []ExtractedSection `json:"parsed_content"`
	Metadata      ContentMetadata    `json:"metadata"`
	Domain        string             `json:"domain"`
	LastIndexed   time.Time          `json:"last_indexed"`
}

// ContentID builds a RepositoryContent ID.
func ContentID(repositoryID, path string) string {
	return repositoryID + "/" + strings.TrimPrefix(path, "/")
}

// TreeEntry is one item of a repository directory listing.
type TreeEntry struct {
	Name string        `json:"name"`
	Path string        `json:"path"`
	Type TreeEntryType `json:"type"`
	SHA  string        `json:"sha"`
	Size int           `json:"size"`
}

// TreeEntryType is the kind of a directory listing entry.
type TreeEntryType string

// Tree entry types.
const (
	TreeEntryFile TreeEntryType = "file"
	TreeEntryDir  TreeEntryType = "dir"
)

// IndexingStatus is the state of a repository indexing run.
type IndexingStatus string

// Indexing states. A run starts IN_PROGRESS and ends in exactly one of
// COMPLETED or FAILED.
const (
	IndexingInProgress IndexingStatus = "IN_PROGRESS"
	IndexingCompleted  IndexingStatus = "COMPLETED"
	IndexingFailed     IndexingStatus = "FAILED"
)

// IsTerminal reports whether the status is COMPLETED or FAILED.
func (s IndexingStatus) IsTerminal() bool {
	return s == IndexingCompleted || s == IndexingFailed
}

// SkippedItem records a per-item failure that did not abort a walk or crawl.
type SkippedItem struct {
	// Path is a repository path or a page URL.
	Path string `json:"path"`

	// Kind is the error kind name (NETWORK_ERROR, PARSE_ERROR, ...).
	Kind string `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`
}

// IndexingResult is the outcome of indexing one repository.
type IndexingResult struct {
	RepositoryID string         `json:"repository_id"`
	Status       IndexingStatus `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`

	// Error is the captured failure message for FAILED results.
	Error string `json:"error,omitempty"`

	// Skipped is true when the repository was fresh enough and the walk
	// did not run.
	Skipped bool `json:"skipped"`

	// FilesProcessed counts stored files, README excluded.
	FilesProcessed int `json:"files_processed"`

	// SkippedItems lists files that failed without aborting the walk.
	SkippedItems []SkippedItem `json:"skipped_items,omitempty"`
}

// Duration returns how long the run took, or zero while in progress.
func (r *IndexingResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RepositoryArtifact is the produced artifact for a repository.
type RepositoryArtifact struct {
	Metadata       RepositoryMetadata  `json:"metadata"`
	ReadmeSections []ExtractedSection  `json:"readme_sections"`
	Files          []RepositoryContent `json:"files"`
}
