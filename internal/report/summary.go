package report

import (
	"sort"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

// Summary condenses an IngestReport into the numbers a user looks at first.
type Summary struct {
	ID         string        `json:"id"`
	Target     string        `json:"target,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	TimedOut   bool          `json:"timed_out"`
	Errors     []string      `json:"errors,omitempty"`
	Pages      int           `json:"pages"`
	Documents  int           `json:"documents"`
	Stored     int           `json:"documents_stored"`
	Indexed    int           `json:"documents_indexed"`
	Completed  int           `json:"repositories_completed"`
	Failed     int           `json:"repositories_failed"`
	Skipped    int           `json:"repositories_skipped"`
	Repos      []RepoLine    `json:"repositories,omitempty"`
	Failures   []KindCount   `json:"failures,omitempty"`
	Referenced []string      `json:"referenced_repositories,omitempty"`
}

// RepoLine is one repository row of a summary.
type RepoLine struct {
	Key     string `json:"key"`
	Status  string `json:"status"`
	Files   int    `json:"files"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// KindCount is the number of per-item failures of one error kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// NewSummary builds a summary of report.
func NewSummary(report *model.IngestReport) *Summary {
	s := &Summary{
		ID:        report.ID,
		Target:    report.Target,
		StartedAt: report.StartedAt,
		TimedOut:  report.TimedOut,
		Errors:    report.Errors,
		Stored:    report.DocumentsStored,
		Indexed:   report.DocumentsIndexed,
		Completed: report.CountByStatus(model.IndexingCompleted),
		Failed:    report.CountByStatus(model.IndexingFailed),
	}
	if !report.FinishedAt.IsZero() {
		s.Duration = report.FinishedAt.Sub(report.StartedAt)
	}

	if report.Crawl != nil {
		s.Pages = len(report.Crawl.Pages)
		s.Documents = len(report.Crawl.Documents)
		for _, ref := range report.Crawl.RepositoryRefs {
			s.Referenced = append(s.Referenced, ref.String())
		}
	}

	for _, key := range report.RepositoryKeys() {
		res := report.Results[key]
		if res.Skipped {
			s.Skipped++
		}
		s.Repos = append(s.Repos, RepoLine{
			Key:     key,
			Status:  string(res.Status),
			Files:   res.FilesProcessed,
			Skipped: res.Skipped,
			Error:   res.Error,
		})
	}

	for kind, n := range report.FailureTally() {
		s.Failures = append(s.Failures, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(s.Failures, func(i, j int) bool {
		if s.Failures[i].Count != s.Failures[j].Count {
			return s.Failures[i].Count > s.Failures[j].Count
		}
		return s.Failures[i].Kind < s.Failures[j].Kind
	})

	return s
}

// TotalFailures returns the number of per-item failures.
func (s *Summary) TotalFailures() int {
	n := 0
	for _, f := range s.Failures {
		n += f.Count
	}
	return n
}

// Status returns a one-word run status.
func (s *Summary) Status() string {
	switch {
	case s.TimedOut:
		return "TIMED OUT"
	case len(s.Errors) > 0:
		return "ERROR"
	default:
		return "COMPLETE"
	}
}
