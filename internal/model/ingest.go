package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// IngestReport is the result of one docingest invocation.
// It collects everything the crawl and repository steps produced so the
// persist step and the report writers can work from a single value.
type IngestReport struct {
	// ID identifies the run.
	ID string `json:"id"`

	// Target is the crawled root URL, empty for repository-only runs.
	Target string `json:"target,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Crawl is the site crawl result, nil when no crawl ran.
	Crawl *CrawlResult `json:"crawl,omitempty"`

	// Repositories maps "owner/name" to the repository artifact.
	Repositories map[string]*RepositoryArtifact `json:"repositories,omitempty"`

	// Results maps "owner/name" to the indexing result.
	Results map[string]*IndexingResult `json:"results,omitempty"`

	// PendingRepositories are repositories queued for indexing, either
	// requested explicitly or discovered by the crawl.
	PendingRepositories []RepositoryRef `json:"pending_repositories,omitempty"`

	// DocumentsStored counts documents written by the persist step.
	DocumentsStored int `json:"documents_stored"`

	// DocumentsIndexed counts documents added to the search index.
	DocumentsIndexed int `json:"documents_indexed"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`

	// Errors collects step errors when the pipeline continues on error.
	Errors []string `json:"errors,omitempty"`

	// TimedOut is true when the run was cancelled before all steps ran.
	TimedOut bool `json:"timed_out"`
}

// NewIngestReport creates a report with a fresh run ID.
func NewIngestReport(target string) *IngestReport {
	return &IngestReport{
		ID:           uuid.NewString(),
		Target:       target,
		StartedAt:    time.Now(),
		Repositories: make(map[string]*RepositoryArtifact),
		Results:      make(map[string]*IndexingResult),
	}
}

// AddPending queues a repository, ignoring duplicates by key.
func (r *IngestReport) AddPending(ref RepositoryRef) {
	for _, p := range r.PendingRepositories {
		if p.Key() == ref.Key() {
			return
		}
	}
	r.PendingRepositories = append(r.PendingRepositories, ref)
}

// AddRepository records the outcome of indexing a repository.
// artifact may be nil for failed or skipped runs.
func (r *IngestReport) AddRepository(key string, result *IndexingResult, artifact *RepositoryArtifact) {
	if r.Results == nil {
		r.Results = make(map[string]*IndexingResult)
	}
	if r.Repositories == nil {
		r.Repositories = make(map[string]*RepositoryArtifact)
	}
	if result != nil {
		r.Results[key] = result
	}
	if artifact != nil {
		r.Repositories[key] = artifact
	}
}

// RepositoryKeys returns the keys of all recorded results in sorted order.
func (r *IngestReport) RepositoryKeys() []string {
	keys := make([]string, 0, len(r.Results))
	for k := range r.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CrawlDocuments returns the documents produced by the crawl, if any.
func (r *IngestReport) CrawlDocuments() []Document {
	docs := make([]Document, 0)
	if r.Crawl != nil {
		docs = append(docs, r.Crawl.Documents...)
	}
	return docs
}

// FailureTally counts per-item failures by error kind across the crawl and
// all repositories.
func (r *IngestReport) FailureTally() map[string]int {
	tally := make(map[string]int)
	if r.Crawl != nil {
		for _, f := range r.Crawl.Failures {
			tally[f.Kind]++
		}
	}
	for _, res := range r.Results {
		for _, s := range res.SkippedItems {
			tally[s.Kind]++
		}
	}
	return tally
}

// CountByStatus counts indexing results in the given state.
func (r *IngestReport) CountByStatus(status IndexingStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Finish stamps the end time.
func (r *IngestReport) Finish() {
	r.FinishedAt = time.Now()
}
