package walker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/model"
)

// Session holds the indexing results of one ingestion run, keyed by
// "owner/name". It is safe for concurrent use: every change to a recorded
// result goes through the session lock, so Status may be polled while a
// run is in progress.
type Session struct {
	id      string
	mu      sync.Mutex
	results map[string]*model.IndexingResult
}

// NewSession creates an empty session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		results: make(map[string]*model.IndexingResult),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// begin records an IN_PROGRESS result for key. It fails when another run
// for the same key has not finished.
func (s *Session) begin(key string, now time.Time) (*model.IndexingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.results[key]; ok && r.Status == model.IndexingInProgress {
		return nil, fault.New(fault.KindInvalidInput, "indexing already in progress").With("repository", key)
	}
	r := &model.IndexingResult{
		RepositoryID: key,
		Status:       model.IndexingInProgress,
		StartedAt:    now,
	}
	s.results[key] = r
	return r, nil
}

// skip records an item of r that could not be indexed.
func (s *Session) skip(r *model.IndexingResult, item model.SkippedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.SkippedItems = append(r.SkippedItems, item)
}

// fileProcessed counts one stored file of r.
func (s *Session) fileProcessed(r *model.IndexingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.FilesProcessed++
}

// complete moves r to COMPLETED. fresh marks a run skipped because the
// stored metadata was recent enough.
func (s *Session) complete(r *model.IndexingResult, fresh bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Skipped = fresh
	r.Status = model.IndexingCompleted
	r.FinishedAt = now
}

// finish moves r to a terminal status.
func (s *Session) finish(r *model.IndexingResult, status model.IndexingStatus, err error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Status = status
	r.FinishedAt = now
	if err != nil {
		r.Error = err.Error()
	}
}

// Status returns a copy of the result recorded for key.
func (s *Session) Status(key string) (model.IndexingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[key]
	if !ok {
		return model.IndexingResult{}, false
	}
	cp := *r
	cp.SkippedItems = append([]model.SkippedItem(nil), r.SkippedItems...)
	return cp, true
}
