package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/metadata"
	"github.com/nao1215/docingest/internal/model"
)

// SiteCrawler crawls a documentation site. *crawler.Spider implements it.
type SiteCrawler interface {
	Crawl(ctx context.Context, startURL string) (*model.CrawlResult, error)
}

// DocumentIndex receives documents for full-text search. *index.Index
// implements it.
type DocumentIndex interface {
	IndexDocuments(docs []model.Document) (int, error)
}

// Store persists the run. *database.Store implements it.
type Store interface {
	SavePage(ctx context.Context, page *model.Page) error
	SaveDocuments(ctx context.Context, docs []model.Document) error
	SaveIngestReport(ctx context.Context, report *model.IngestReport) error
}

// CrawlStep crawls report.Target and queues the repositories it references.
//
// Design decision: Repository references are only queued here. Indexing
// them is RepositoryStep's job so a crawl-only run stays cheap.
type CrawlStep struct {
	crawler     SiteCrawler
	followRepos bool
	logger      *slog.Logger
}

// NewCrawlStep creates a crawl step. When followRepos is true, repository
// references found on crawled pages are queued for indexing.
func NewCrawlStep(c SiteCrawler, followRepos bool, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, followRepos: followRepos, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. Runs without a target are left untouched.
func (s *CrawlStep) Do(ctx context.Context, report *model.IngestReport) error {
	if report.Target == "" {
		return nil
	}

	result, err := s.crawler.Crawl(ctx, report.Target)
	// A cancelled crawl still returns what it collected.
	if result != nil {
		report.Crawl = result
		if s.followRepos {
			for _, ref := range result.RepositoryRefs {
				report.AddPending(ref)
			}
		}
		s.logger.Info("crawl finished",
			"target", report.Target,
			"pages", len(result.Pages),
			"documents", len(result.Documents),
			"failures", len(result.Failures),
		)
	}
	if err != nil {
		return fmt.Errorf("crawl %s: %w", report.Target, err)
	}
	return nil
}

// RepositoryStep indexes every pending repository of the report.
type RepositoryStep struct {
	batch  *BatchProcessor
	logger *slog.Logger
}

// NewRepositoryStep creates a repository indexing step.
func NewRepositoryStep(batch *BatchProcessor, logger *slog.Logger) *RepositoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryStep{batch: batch, logger: logger}
}

// Name returns the step name.
func (s *RepositoryStep) Name() string {
	return "repositories"
}

// Do executes the repository step. Individual repository failures are
// recorded as FAILED results and do not fail the step.
func (s *RepositoryStep) Do(ctx context.Context, report *model.IngestReport) error {
	if len(report.PendingRepositories) == 0 {
		return nil
	}

	results, err := s.batch.ProcessBatch(ctx, report.PendingRepositories)
	for _, r := range results {
		if r.Ref.Key() == "" {
			// Never started because the batch was cancelled.
			continue
		}
		result := r.Result
		if result == nil && r.Err != nil {
			result = &model.IndexingResult{
				RepositoryID: r.Ref.Key(),
				Status:       model.IndexingFailed,
				Error:        r.Err.Error(),
			}
		}
		report.AddRepository(r.Ref.Key(), result, r.Artifact)
	}

	s.logger.Info("repositories indexed",
		"total", len(report.Results),
		"completed", report.CountByStatus(model.IndexingCompleted),
		"failed", report.CountByStatus(model.IndexingFailed),
	)

	if err != nil {
		return fault.Wrap(fault.KindTimeout, err, "repository indexing aborted")
	}
	return nil
}

// IndexStep feeds all produced documents to the search index.
type IndexStep struct {
	index     DocumentIndex
	generator *metadata.Generator
}

// NewIndexStep creates a search indexing step.
func NewIndexStep(idx DocumentIndex, g *metadata.Generator) *IndexStep {
	if g == nil {
		g = metadata.NewGenerator()
	}
	return &IndexStep{index: idx, generator: g}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
func (s *IndexStep) Do(_ context.Context, report *model.IngestReport) error {
	docs := CollectDocuments(report, s.generator)
	if len(docs) == 0 {
		return nil
	}
	n, err := s.index.IndexDocuments(docs)
	report.DocumentsIndexed += n
	if err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

// PersistStep writes pages, documents and the report itself to the store.
//
// Design decision: This is the last step so the stored report reflects the
// outcome of every step before it.
type PersistStep struct {
	store     Store
	generator *metadata.Generator
	logger    *slog.Logger
}

// NewPersistStep creates a persist step.
func NewPersistStep(store Store, g *metadata.Generator, logger *slog.Logger) *PersistStep {
	if g == nil {
		g = metadata.NewGenerator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, generator: g, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step.
func (s *PersistStep) Do(ctx context.Context, report *model.IngestReport) error {
	if report.Crawl != nil {
		for _, page := range report.Crawl.Pages {
			if err := s.store.SavePage(ctx, page); err != nil {
				return fmt.Errorf("save page %s: %w", page.URL, err)
			}
		}
	}

	docs := CollectDocuments(report, s.generator)
	if err := s.store.SaveDocuments(ctx, docs); err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	report.DocumentsStored = len(docs)

	report.Finish()
	if err := s.store.SaveIngestReport(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	s.logger.Debug("run persisted",
		"run", report.ID,
		"documents", report.DocumentsStored,
	)
	return nil
}

// CollectDocuments returns the crawl documents followed by documents built
// from every repository artifact, README first, in key order.
// Document ids are unique in the result: a repeated id gets a "-2", "-3",
// ... suffix so no document overwrites another in storage or the index.
func CollectDocuments(report *model.IngestReport, g *metadata.Generator) []model.Document {
	docs := report.CrawlDocuments()

	for _, key := range report.RepositoryKeys() {
		artifact, ok := report.Repositories[key]
		if !ok {
			continue
		}
		if len(artifact.ReadmeSections) > 0 {
			docs = append(docs, repositoryDocuments(g, key, "README.md", artifact.ReadmeSections)...)
		}
		for _, file := range artifact.Files {
			docs = append(docs, repositoryDocuments(g, key, file.Path, file.ParsedContent)...)
		}
	}
	return uniqueDocumentIDs(docs)
}

func repositoryDocuments(g *metadata.Generator, key, filePath string, sections []model.ExtractedSection) []model.Document {
	p := path.Join(key, filePath)
	return g.Documents(sections, metadata.SourceID(p), "/"+p)
}

func uniqueDocumentIDs(docs []model.Document) []model.Document {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		id := docs[i].ID
		for n := 2; ; n++ {
			if _, dup := seen[id]; !dup {
				break
			}
			id = docs[i].ID + "-" + strconv.Itoa(n)
		}
		if id != docs[i].ID {
			docs[i].ID = id
			docs[i].Metadata.ID = id
		}
		seen[id] = struct{}{}
	}
	return docs
}

// Components are the collaborators of the default pipeline. Nil members
// drop the corresponding step.
type Components struct {
	Crawler            SiteCrawler
	Batch              *BatchProcessor
	Index              DocumentIndex
	Store              Store
	Generator          *metadata.Generator
	FollowRepositories bool
	Logger             *slog.Logger
}

// DefaultPipeline creates a pipeline with the standard ingestion steps:
// crawl, repositories, index, persist.
//
// Design decision: The index step runs before persist so the stored report
// carries the indexed document count.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	if c.Logger != nil {
		opts = append([]Option{WithLogger(c.Logger)}, opts...)
	}
	p := New(opts...)

	if c.Crawler != nil {
		p.AddStep(NewCrawlStep(c.Crawler, c.FollowRepositories, c.Logger))
	}
	if c.Batch != nil {
		p.AddStep(NewRepositoryStep(c.Batch, c.Logger))
	}
	if c.Index != nil {
		p.AddStep(NewIndexStep(c.Index, c.Generator))
	}
	if c.Store != nil {
		p.AddStep(NewPersistStep(c.Store, c.Generator, c.Logger))
	}
	return p
}
