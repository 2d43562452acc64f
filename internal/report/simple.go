package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.IngestReport) (int, error) {
	return w.WriteSummary(NewSummary(report))
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	w.writeRepositories(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeReferences(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        DOCINGEST REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.ID))
	if s.Target != "" {
		sb.WriteString(fmt.Sprintf("Target:     %s\n", s.Target))
	}
	sb.WriteString(fmt.Sprintf("Started:    %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", s.Duration.Round(time.Millisecond)))

	switch s.Status() {
	case "TIMED OUT":
		sb.WriteString("Status:     TIMED OUT (partial results)\n")
	case "ERROR":
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", strings.Join(s.Errors, "; ")))
	default:
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeTotals writes the counters section.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, s *Summary) {
	w.writeSection(sb, "TOTALS")

	sb.WriteString(fmt.Sprintf("  PAGES CRAWLED:      %d\n", s.Pages))
	sb.WriteString(fmt.Sprintf("  CRAWL DOCUMENTS:    %d\n", s.Documents))
	sb.WriteString(fmt.Sprintf("  DOCUMENTS STORED:   %d\n", s.Stored))
	sb.WriteString(fmt.Sprintf("  DOCUMENTS INDEXED:  %d\n", s.Indexed))
	sb.WriteString(fmt.Sprintf("  REPOSITORIES:       %d completed, %d failed, %d fresh\n", s.Completed, s.Failed, s.Skipped))
	sb.WriteString(fmt.Sprintf("  FAILED ITEMS:       %d\n", s.TotalFailures()))
	sb.WriteString("\n")
}

// writeRepositories writes one line per indexed repository.
func (w *SimpleWriter) writeRepositories(sb *strings.Builder, s *Summary) {
	if len(s.Repos) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "REPOSITORIES")

	if len(s.Repos) == 0 {
		sb.WriteString("  No repositories indexed\n\n")
		return
	}

	for _, r := range s.Repos {
		marker := "+"
		if r.Status == string(model.IndexingFailed) {
			marker = "x"
		}
		line := fmt.Sprintf("  [%s] %s  %s  files=%d", marker, r.Key, r.Status, r.Files)
		if r.Skipped {
			line += "  (fresh, not re-indexed)"
		}
		sb.WriteString(line + "\n")
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("      Error: %s\n", r.Error))
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes per-item failures grouped by error kind.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *Summary) {
	if len(s.Failures) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "FAILURES BY KIND")

	if len(s.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	for _, f := range s.Failures {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", f.Kind, f.Count))
	}
	sb.WriteString("\n")
}

// writeReferences lists repositories referenced by crawled pages.
// Only shown in verbose mode.
func (w *SimpleWriter) writeReferences(sb *strings.Builder, s *Summary) {
	if !w.verbose || len(s.Referenced) == 0 {
		return
	}

	w.writeSection(sb, "REFERENCED REPOSITORIES")
	for _, ref := range s.Referenced {
		sb.WriteString(fmt.Sprintf("  * %s\n", ref))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by docingest\n")
	sb.WriteString("https://github.com/nao1215/docingest\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
