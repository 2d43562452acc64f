package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docingest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.IngestReport) (int, error) {
	return w.WriteSummary(NewSummary(report))
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeRepositories(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("docingest Report")
	md.PlainText("")

	target := s.Target
	if target == "" {
		target = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.ID + "`"},
			{"Target", target},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.String()},
			{"Status", w.getStatusText(s)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(s *Summary) string {
	if s.TimedOut {
		return "⚠️ Timed Out (partial results)"
	}
	if len(s.Errors) > 0 {
		return "❌ Error - " + strings.Join(s.Errors, "; ")
	}
	return "✅ Complete"
}

// writeTotals writes the counters table and an alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, s *Summary) {
	md.H2("Totals")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(s.Pages)},
			{"Crawl documents", strconv.Itoa(s.Documents)},
			{"Documents stored", strconv.Itoa(s.Stored)},
			{"Documents indexed", strconv.Itoa(s.Indexed)},
			{"Repositories completed", strconv.Itoa(s.Completed)},
			{"Repositories failed", strconv.Itoa(s.Failed)},
			{"Failed items", strconv.Itoa(s.TotalFailures())},
		},
	})
	md.PlainText("")

	switch {
	case s.TimedOut:
		md.Warning("The run was cancelled before all steps finished. Results are partial.")
	case s.Failed > 0:
		md.Cautionf("%d repository(s) failed to index.", s.Failed)
	case s.TotalFailures() > 0:
		md.Importantf("%d item(s) were skipped because of errors.", s.TotalFailures())
	default:
		md.Tip("All items were ingested successfully.")
	}
	md.PlainText("")
}

// writeRepositories writes the repository table.
func (w *MarkdownWriter) writeRepositories(md *markdown.Markdown, s *Summary) {
	md.H2("Repositories")
	md.PlainText("")

	if len(s.Repos) == 0 {
		md.PlainText("No repositories indexed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Repos))
	for i, r := range s.Repos {
		status := r.Status
		if r.Skipped {
			status += " (fresh)"
		}
		errText := r.Error
		if errText == "" {
			errText = "-"
		}
		rows[i] = []string{
			"`" + r.Key + "`",
			status,
			strconv.Itoa(r.Files),
			truncateString(errText, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Repository", "Status", "Files", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes failure counts by kind with a pie chart.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	md.H2("Failures")
	md.PlainText("")

	if len(s.Failures) == 0 {
		md.PlainText("No failures recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Failures))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Failures by Kind"),
		piechart.WithShowData(true),
	)
	for i, f := range s.Failures {
		rows[i] = []string{f.Kind, strconv.Itoa(f.Count)}
		chart.LabelAndIntValue(f.Kind, uint64(f.Count))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [docingest](https://github.com/nao1215/docingest)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
