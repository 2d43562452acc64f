package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/walker"
)

// DefaultConcurrency is the default number of repositories indexed at once.
const DefaultConcurrency = 4

// RepositoryIndexer indexes one repository. *walker.Indexer implements it.
type RepositoryIndexer interface {
	IndexRepository(ctx context.Context, owner, name string, opts walker.IndexOptions) (*model.IndexingResult, *model.RepositoryArtifact, error)
}

// BatchResult is the outcome of one repository of a batch.
type BatchResult struct {
	Ref      model.RepositoryRef
	Result   *model.IndexingResult
	Artifact *model.RepositoryArtifact
	Err      error
}

// BatchProcessor indexes many repositories concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on sequential step execution
// 2. Per-key de-duplication lives in one place
type BatchProcessor struct {
	// indexer performs the per-repository work.
	indexer RepositoryIndexer

	// options are passed to every IndexRepository call.
	options walker.IndexOptions

	// concurrency is the maximum number of concurrent repositories.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent repositories.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithIndexOptions sets the options used for every repository.
func WithIndexOptions(opts walker.IndexOptions) BatchOption {
	return func(b *BatchProcessor) {
		b.options = opts
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(indexer RepositoryIndexer, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		indexer:     indexer,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// dedupe drops repeated keys, keeping the first occurrence.
func dedupe(refs []model.RepositoryRef) []model.RepositoryRef {
	seen := make(map[string]struct{}, len(refs))
	out := make([]model.RepositoryRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.Key()]; ok {
			continue
		}
		seen[ref.Key()] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// ProcessBatch indexes refs concurrently, one goroutine per distinct key.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
//
// Results follow the order of the de-duplicated input and are returned
// even for repositories that failed. The error is non-nil only when ctx
// was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, refs []model.RepositoryRef) ([]BatchResult, error) {
	refs = dedupe(refs)
	results := make([]BatchResult, len(refs))

	err := bp.run(ctx, refs, func(r BatchResult, i int) {
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback indexes refs and calls callback for each
// completed repository. The callback is called from the goroutine that
// finished the repository, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, refs []model.RepositoryRef, callback func(result BatchResult, index int)) error {
	return bp.run(ctx, dedupe(refs), callback)
}

func (bp *BatchProcessor) run(ctx context.Context, refs []model.RepositoryRef, callback func(BatchResult, int)) error {
	bp.logger.Debug("starting batch processing",
		"total_repositories", len(refs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, artifact, err := bp.indexer.IndexRepository(gctx, ref.Owner, ref.Name, bp.options)
			if err != nil {
				bp.logger.Warn("repository failed",
					"repository", ref.Key(),
					"error", err,
				)
			}

			// Failures are recorded in the result; other repositories continue.
			callback(BatchResult{Ref: ref, Result: result, Artifact: artifact, Err: err}, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total_repositories", len(refs),
		"elapsed", time.Since(startTime),
	)
	return err
}
