package walker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/processor"
)

// Default limits.
const (
	// DefaultMaxAge is how long indexed metadata stays fresh.
	DefaultMaxAge = 24 * time.Hour

	// DefaultMaxTreeDepth bounds how deep the walk descends.
	DefaultMaxTreeDepth = 10
)

// readmePath is the synthetic path README content is stored under.
const readmePath = "README.md"

// Host is the repository hosting API the walker reads from.
type Host interface {
	Metadata(ctx context.Context, owner, name string) (*model.RepositoryMetadata, error)
	Readme(ctx context.Context, owner, name string) (string, error)
	File(ctx context.Context, owner, name, path string) (string, error)
	List(ctx context.Context, owner, name, path string) ([]model.TreeEntry, error)
}

// Storage persists registry entries, metadata and processed files.
// Lookups return nil without error when nothing is stored.
type Storage interface {
	RepositoryConfig(ctx context.Context, owner, name string) (*model.RepositoryConfig, error)
	SaveRepositoryConfig(ctx context.Context, cfg model.RepositoryConfig) error
	RepositoryMetadata(ctx context.Context, key string) (*model.RepositoryMetadata, error)
	SaveRepositoryMetadata(ctx context.Context, meta *model.RepositoryMetadata) error
	SaveRepositoryContent(ctx context.Context, content *model.RepositoryContent) error
}

// IndexOptions selects what a single run visits.
type IndexOptions struct {
	IncludePaths []string
	ExcludePaths []string

	// ExcludeGlobs are doublestar patterns for paths to skip.
	ExcludeGlobs []string

	// ForceReindex ignores metadata freshness.
	ForceReindex bool
}

// Indexer walks repositories and stores their processed content.
type Indexer struct {
	host         Host
	store        Storage
	processors   *processor.Registry
	session      *Session
	logger       *slog.Logger
	maxAge       time.Duration
	maxTreeDepth int
	now          func() time.Time
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithSession shares a session between indexers.
func WithSession(s *Session) Option {
	return func(i *Indexer) {
		if s != nil {
			i.session = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Indexer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMaxAge sets the metadata freshness window.
func WithMaxAge(d time.Duration) Option {
	return func(i *Indexer) {
		if d > 0 {
			i.maxAge = d
		}
	}
}

// WithMaxTreeDepth bounds the walk. The repository root is depth 0.
func WithMaxTreeDepth(depth int) Option {
	return func(i *Indexer) {
		if depth >= 0 {
			i.maxTreeDepth = depth
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Indexer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIndexer creates an Indexer.
func NewIndexer(host Host, store Storage, processors *processor.Registry, opts ...Option) *Indexer {
	i := &Indexer{
		host:         host,
		store:        store,
		processors:   processors,
		session:      NewSession(),
		logger:       slog.Default(),
		maxAge:       DefaultMaxAge,
		maxTreeDepth: DefaultMaxTreeDepth,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Session returns the session results are recorded in.
func (i *Indexer) Session() *Session {
	return i.session
}

// NeedsIndexing reports whether meta is older than maxAge.
// Missing metadata always needs indexing; maxAge <= 0 uses DefaultMaxAge.
func NeedsIndexing(meta *model.RepositoryMetadata, maxAge time.Duration, now time.Time) bool {
	if meta == nil || meta.LastIndexed.IsZero() {
		return true
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return now.Sub(meta.LastIndexed) > maxAge
}

// IndexRepository indexes owner/name.
//
// The returned result is always non-nil once the run has started. The
// artifact is nil when the run failed or was skipped as fresh. The error is
// non-nil only for FAILED runs and for runs that could not start.
func (i *Indexer) IndexRepository(ctx context.Context, owner, name string, opts IndexOptions) (*model.IndexingResult, *model.RepositoryArtifact, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, nil, fault.New(fault.KindInvalidInput, "repository owner and name are required")
	}

	key := model.RepositoryKey(owner, name)
	result, err := i.session.begin(key, i.now())
	if err != nil {
		return nil, nil, err
	}
	logger := i.logger.With("repository", key)
	logger.Debug("indexing started")

	artifact, skipped, err := i.run(ctx, owner, name, key, opts, result, logger)
	if err != nil {
		logger.Warn("indexing failed", "kind", fault.KindOf(err), "error", err)
		i.session.finish(result, model.IndexingFailed, err, i.now())
		return result, nil, err
	}

	i.session.complete(result, skipped, i.now())
	logger.Debug("indexing completed",
		"files", result.FilesProcessed,
		"skipped_items", len(result.SkippedItems),
		"fresh", skipped,
	)
	return result, artifact, nil
}

func (i *Indexer) run(ctx context.Context, owner, name, key string, opts IndexOptions, result *model.IndexingResult, logger *slog.Logger) (*model.RepositoryArtifact, bool, error) {
	cfg, err := i.registryEntry(ctx, owner, name)
	if err != nil {
		return nil, false, err
	}

	if !opts.ForceReindex {
		stored, err := i.store.RepositoryMetadata(ctx, key)
		if err != nil {
			return nil, false, fault.Wrap(fault.KindInternal, err, "cannot load stored metadata")
		}
		if !NeedsIndexing(stored, i.maxAge, i.now()) {
			logger.Debug("metadata is fresh, skipping", "last_indexed", stored.LastIndexed)
			return nil, true, nil
		}
	}

	meta, err := i.host.Metadata(ctx, owner, name)
	if err != nil {
		return nil, false, err
	}
	meta.RepositoryConfig = cfg
	meta.LastIndexed = i.now()
	if err := i.store.SaveRepositoryMetadata(ctx, meta); err != nil {
		return nil, false, fault.Wrap(fault.KindInternal, err, "cannot store metadata")
	}

	artifact := &model.RepositoryArtifact{
		Metadata:       *meta,
		ReadmeSections: []model.ExtractedSection{},
		Files:          []model.RepositoryContent{},
	}

	if sections, err := i.indexReadme(ctx, meta); err != nil {
		logger.Warn("readme skipped", "kind", fault.KindOf(err), "error", err)
		i.session.skip(result, skippedItem(readmePath, err))
	} else {
		artifact.ReadmeSections = sections
	}

	if err := i.walk(ctx, meta, NewPathFilter(opts.IncludePaths, opts.ExcludePaths, opts.ExcludeGlobs), result, artifact, logger); err != nil {
		return nil, false, err
	}
	return artifact, false, nil
}

// registryEntry returns the stored registry entry or stores a default one.
func (i *Indexer) registryEntry(ctx context.Context, owner, name string) (model.RepositoryConfig, error) {
	cfg, err := i.store.RepositoryConfig(ctx, owner, name)
	if err != nil {
		return model.RepositoryConfig{}, fault.Wrap(fault.KindInternal, err, "cannot load registry entry")
	}
	if cfg != nil {
		return *cfg, nil
	}

	def := model.DefaultRepositoryConfig(owner, name)
	if err := i.store.SaveRepositoryConfig(ctx, def); err != nil {
		return model.RepositoryConfig{}, fault.Wrap(fault.KindInternal, err, "cannot store registry entry")
	}
	return def, nil
}

func (i *Indexer) indexReadme(ctx context.Context, meta *model.RepositoryMetadata) ([]model.ExtractedSection, error) {
	text, err := i.host.Readme(ctx, meta.Owner, meta.Name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []model.ExtractedSection{}, nil
	}

	info := processor.FileInfo{Repository: meta, Path: readmePath, Size: len(text)}
	p, ok := i.processors.Find(readmePath, info)
	if !ok {
		return []model.ExtractedSection{}, nil
	}
	res, err := p.Process(text, info)
	if err != nil {
		return nil, err
	}

	content := i.content(meta, readmePath, model.ContentTypeReadme, text, res, info)
	if err := i.store.SaveRepositoryContent(ctx, content); err != nil {
		return nil, fault.Wrap(fault.KindInternal, err, "cannot store readme")
	}
	return res.Sections, nil
}

// workItem is a directory waiting to be listed.
type workItem struct {
	path  string
	depth int
}

// walk visits the tree depth-first in listing order.
func (i *Indexer) walk(ctx context.Context, meta *model.RepositoryMetadata, filter PathFilter, result *model.IndexingResult, artifact *model.RepositoryArtifact, logger *slog.Logger) error {
	stack := []workItem{{path: "", depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fault.Wrap(fault.KindTimeout, err, "indexing aborted")
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := i.host.List(ctx, meta.Owner, meta.Name, item.path)
		if err != nil {
			logger.Warn("directory skipped", "path", item.path, "kind", fault.KindOf(err), "error", err)
			i.session.skip(result, skippedItem(item.path, err))
			continue
		}

		var dirs []workItem
		for _, entry := range entries {
			switch entry.Type {
			case model.TreeEntryDir:
				if !filter.Allows(entry.Path, true) {
					continue
				}
				if item.depth+1 > i.maxTreeDepth {
					logger.Debug("directory below max depth", "path", entry.Path)
					continue
				}
				dirs = append(dirs, workItem{path: entry.Path, depth: item.depth + 1})
			case model.TreeEntryFile:
				if !filter.Allows(entry.Path, false) {
					continue
				}
				stored, err := i.indexFile(ctx, meta, entry, artifact)
				if err != nil {
					logger.Warn("file skipped", "path", entry.Path, "kind", fault.KindOf(err), "error", err)
					i.session.skip(result, skippedItem(entry.Path, err))
					continue
				}
				if stored {
					i.session.fileProcessed(result)
				}
			}
		}

		// Reverse so the first listed directory is walked first.
		for j := len(dirs) - 1; j >= 0; j-- {
			stack = append(stack, dirs[j])
		}
	}
	return nil
}

// indexFile stores one file. Files no processor accepts are ignored.
func (i *Indexer) indexFile(ctx context.Context, meta *model.RepositoryMetadata, entry model.TreeEntry, artifact *model.RepositoryArtifact) (bool, error) {
	info := processor.FileInfo{Repository: meta, Path: entry.Path, SHA: entry.SHA, Size: entry.Size}
	p, ok := i.processors.Find(entry.Path, info)
	if !ok {
		return false, nil
	}

	text, err := i.host.File(ctx, meta.Owner, meta.Name, entry.Path)
	if err != nil {
		return false, err
	}
	if info.Size == 0 {
		info.Size = len(text)
	}
	res, err := p.Process(text, info)
	if err != nil {
		return false, err
	}

	content := i.content(meta, entry.Path, model.ContentTypeFile, text, res, info)
	if err := i.store.SaveRepositoryContent(ctx, content); err != nil {
		return false, fault.Wrap(fault.KindInternal, err, "cannot store content").With("path", entry.Path)
	}
	artifact.Files = append(artifact.Files, *content)
	return true, nil
}

func (i *Indexer) content(meta *model.RepositoryMetadata, path string, typ model.ContentType, text string, res *processor.Result, info processor.FileInfo) *model.RepositoryContent {
	now := i.now()
	key := meta.Key()
	return &model.RepositoryContent{
		ID:            model.ContentID(key, path),
		RepositoryID:  key,
		Path:          path,
		Type:          typ,
		Content:       text,
		ParsedContent: res.Sections,
		Metadata: model.ContentMetadata{
			LastModified: now,
			Size:         info.Size,
			Language:     res.Language,
			SHA:          info.SHA,
		},
		Domain:      meta.Domain,
		LastIndexed: now,
	}
}

func skippedItem(path string, err error) model.SkippedItem {
	return model.SkippedItem{Path: path, Kind: string(fault.KindOf(err)), Message: err.Error()}
}
