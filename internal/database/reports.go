package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

// SaveIngestReport saves a complete ingestion report as JSON.
// Saving a report with the same ID again replaces it.
func (s *Store) SaveIngestReport(ctx context.Context, report *model.IngestReport) error {
	reportJSON, err := marshalJSON(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := marshalJSON(report.FailureTally())
	if err != nil {
		return fmt.Errorf("failed to serialize failure summary: %w", err)
	}

	query := `
	INSERT INTO ingest_reports (id, target, started_at, report_json, failure_summary)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		target = excluded.target,
		started_at = excluded.started_at,
		report_json = excluded.report_json,
		failure_summary = excluded.failure_summary
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.Target,
		formatTimestamp(report.StartedAt),
		reportJSON,
		summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save ingest report: %w", err)
	}
	return nil
}

// LatestIngestReport returns the most recent report for target, or nil.
func (s *Store) LatestIngestReport(ctx context.Context, target string) (*model.IngestReport, error) {
	query := `
	SELECT report_json FROM ingest_reports
	WHERE target = ?
	ORDER BY started_at DESC
	LIMIT 1
	`

	var reportJSON string
	err := s.db.QueryRowContext(ctx, query, target).Scan(&reportJSON)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest report: %w", err)
	}

	var report model.IngestReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ReportSummary contains summary information about a stored report.
// This is used for displaying history without loading the full report.
type ReportSummary struct {
	// ID is the report identifier.
	ID string

	// Target is the crawled URL or repository list.
	Target string

	// StartedAt is when the run started.
	StartedAt time.Time

	// Failures counts skipped items by error kind.
	Failures map[string]int
}

// ListIngestReports returns report summaries, newest first.
// limit <= 0 returns all.
func (s *Store) ListIngestReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	query := `
	SELECT id, target, started_at, failure_summary
	FROM ingest_reports
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest reports: %w", err)
	}
	defer rows.Close()

	results := make([]ReportSummary, 0)
	for rows.Next() {
		var sum ReportSummary
		var startedAt string
		var failuresJSON *string
		if err := rows.Scan(&sum.ID, &sum.Target, &startedAt, &failuresJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		sum.StartedAt = parseTimestamp(startedAt)
		sum.Failures = make(map[string]int)
		if failuresJSON != nil && *failuresJSON != "" {
			if err := json.Unmarshal([]byte(*failuresJSON), &sum.Failures); err != nil {
				sum.Failures = make(map[string]int)
			}
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}
