package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

// SaveDocuments inserts or replaces documents in one transaction.
func (s *Store) SaveDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO documents (id, source_id, title, path, level, content, document_json, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source_id = excluded.source_id,
		title = excluded.title,
		path = excluded.path,
		level = excluded.level,
		content = excluded.content,
		document_json = excluded.document_json,
		updated_at = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	now := formatTimestamp(time.Now())
	for _, doc := range docs {
		docJSON, err := marshalJSON(doc)
		if err != nil {
			return fmt.Errorf("failed to serialize document %s: %w", doc.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			doc.ID,
			doc.Metadata.SourceID,
			doc.Metadata.Title,
			doc.Metadata.Path,
			doc.Level,
			doc.Content,
			docJSON,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

// Document returns the document with id, or nil.
func (s *Store) Document(ctx context.Context, id string) (*model.Document, error) {
	var docJSON string
	err := s.db.QueryRowContext(ctx, `SELECT document_json FROM documents WHERE id = ?`, id).Scan(&docJSON)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// DocumentsBySource returns the documents of one source ordered by id.
func (s *Store) DocumentsBySource(ctx context.Context, sourceID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document_json FROM documents WHERE source_id = ? ORDER BY id`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var docJSON string
		if err := rows.Scan(&docJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			continue // Skip malformed rows
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// SavePage inserts or replaces a crawled page record.
// The raw body is not stored; the hash identifies the content.
func (s *Store) SavePage(ctx context.Context, page *model.Page) error {
	headersJSON, err := marshalJSON(page.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}

	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := `
	INSERT INTO pages (url, parent, depth, status_code, content_type, title, rendered, section_count, raw_hash, headers, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		parent = excluded.parent,
		depth = excluded.depth,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		rendered = excluded.rendered,
		section_count = excluded.section_count,
		raw_hash = excluded.raw_hash,
		headers = excluded.headers,
		fetched_at = excluded.fetched_at
	`

	_, err = s.db.ExecContext(ctx, query,
		page.URL,
		page.Parent,
		page.Depth,
		page.StatusCode,
		page.ContentType,
		page.Title,
		page.Rendered,
		page.SectionCount,
		page.Hash,
		headersJSON,
		formatTimestamp(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// Page returns the stored page record for url, or nil.
func (s *Store) Page(ctx context.Context, url string) (*model.Page, error) {
	query := `
	SELECT url, parent, depth, status_code, content_type, title, rendered, section_count, raw_hash, headers, fetched_at
	FROM pages
	WHERE url = ?
	`

	var page model.Page
	var headersJSON, fetchedAt string
	err := s.db.QueryRowContext(ctx, query, url).Scan(
		&page.URL,
		&page.Parent,
		&page.Depth,
		&page.StatusCode,
		&page.ContentType,
		&page.Title,
		&page.Rendered,
		&page.SectionCount,
		&page.Hash,
		&headersJSON,
		&fetchedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page.FetchedAt = parseTimestamp(fetchedAt)
	if headersJSON != "" && headersJSON != "null" {
		if err := json.Unmarshal([]byte(headersJSON), &page.Headers); err != nil {
			return nil, fmt.Errorf("failed to parse headers: %w", err)
		}
	}
	return &page, nil
}

// HasRecentPage checks if url was fetched within the given duration.
func (s *Store) HasRecentPage(ctx context.Context, url string, within time.Duration) (bool, error) {
	var count int
	since := formatTimestamp(time.Now().Add(-within))
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE url = ? AND fetched_at > ?`, url, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent page: %w", err)
	}
	return count > 0, nil
}
