package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nao1215/docingest/internal/model"
)

// SaveRepositoryConfig inserts or replaces a registry entry.
func (s *Store) SaveRepositoryConfig(ctx context.Context, cfg model.RepositoryConfig) error {
	tags := cfg.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := marshalJSON(tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	query := `
	INSERT INTO repositories (key, owner, name, domain, importance, is_official, tags)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		owner = excluded.owner,
		name = excluded.name,
		domain = excluded.domain,
		importance = excluded.importance,
		is_official = excluded.is_official,
		tags = excluded.tags
	`

	_, err = s.db.ExecContext(ctx, query,
		cfg.Key(),
		cfg.Owner,
		cfg.Name,
		cfg.Domain,
		cfg.Importance,
		cfg.IsOfficial,
		tagsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save repository config: %w", err)
	}
	return nil
}

// RepositoryConfig returns the registry entry for owner/name, or nil.
func (s *Store) RepositoryConfig(ctx context.Context, owner, name string) (*model.RepositoryConfig, error) {
	query := `
	SELECT owner, name, domain, importance, is_official, tags
	FROM repositories
	WHERE key = ?
	`

	var cfg model.RepositoryConfig
	var tagsJSON string
	err := s.db.QueryRowContext(ctx, query, model.RepositoryKey(owner, name)).Scan(
		&cfg.Owner,
		&cfg.Name,
		&cfg.Domain,
		&cfg.Importance,
		&cfg.IsOfficial,
		&tagsJSON,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository config: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &cfg.Tags); err != nil {
		return nil, fmt.Errorf("failed to parse tags: %w", err)
	}
	return &cfg, nil
}

// ListRepositoryConfigs returns every registry entry ordered by key.
func (s *Store) ListRepositoryConfigs(ctx context.Context) ([]model.RepositoryConfig, error) {
	query := `
	SELECT owner, name, domain, importance, is_official, tags
	FROM repositories
	ORDER BY key
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	configs := make([]model.RepositoryConfig, 0)
	for rows.Next() {
		var cfg model.RepositoryConfig
		var tagsJSON string
		if err := rows.Scan(&cfg.Owner, &cfg.Name, &cfg.Domain, &cfg.Importance, &cfg.IsOfficial, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &cfg.Tags); err != nil {
			cfg.Tags = []string{}
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SaveRepositoryMetadata inserts or replaces the metadata of a repository.
func (s *Store) SaveRepositoryMetadata(ctx context.Context, meta *model.RepositoryMetadata) error {
	metaJSON, err := marshalJSON(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := `
	INSERT INTO repository_metadata (key, metadata_json, last_indexed)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		metadata_json = excluded.metadata_json,
		last_indexed = excluded.last_indexed
	`

	if _, err := s.db.ExecContext(ctx, query, meta.Key(), metaJSON, formatTimestamp(meta.LastIndexed)); err != nil {
		return fmt.Errorf("failed to save repository metadata: %w", err)
	}
	return nil
}

// RepositoryMetadata returns the stored metadata for key, or nil.
func (s *Store) RepositoryMetadata(ctx context.Context, key string) (*model.RepositoryMetadata, error) {
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT metadata_json FROM repository_metadata WHERE key = ?`, key).Scan(&metaJSON)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository metadata: %w", err)
	}

	var meta model.RepositoryMetadata
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// ListRepositoryMetadata returns all stored metadata ordered by key.
func (s *Store) ListRepositoryMetadata(ctx context.Context) ([]model.RepositoryMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metadata_json FROM repository_metadata ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository metadata: %w", err)
	}
	defer rows.Close()

	list := make([]model.RepositoryMetadata, 0)
	for rows.Next() {
		var metaJSON string
		if err := rows.Scan(&metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		var meta model.RepositoryMetadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue // Skip malformed rows
		}
		list = append(list, meta)
	}
	return list, rows.Err()
}

// SaveRepositoryContent inserts or replaces a processed file.
func (s *Store) SaveRepositoryContent(ctx context.Context, content *model.RepositoryContent) error {
	parsed := content.ParsedContent
	if parsed == nil {
		parsed = []model.ExtractedSection{}
	}
	parsedJSON, err := marshalJSON(parsed)
	if err != nil {
		return fmt.Errorf("failed to serialize parsed content: %w", err)
	}
	metaJSON, err := marshalJSON(content.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize content metadata: %w", err)
	}

	query := `
	INSERT INTO repository_contents (id, repository_id, path, type, content, parsed_json, metadata_json, domain, last_indexed)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		repository_id = excluded.repository_id,
		path = excluded.path,
		type = excluded.type,
		content = excluded.content,
		parsed_json = excluded.parsed_json,
		metadata_json = excluded.metadata_json,
		domain = excluded.domain,
		last_indexed = excluded.last_indexed
	`

	_, err = s.db.ExecContext(ctx, query,
		content.ID,
		content.RepositoryID,
		content.Path,
		string(content.Type),
		content.Content,
		parsedJSON,
		metaJSON,
		content.Domain,
		formatTimestamp(content.LastIndexed),
	)
	if err != nil {
		return fmt.Errorf("failed to save repository content: %w", err)
	}
	return nil
}

// RepositoryContents returns the stored files of a repository ordered by path.
func (s *Store) RepositoryContents(ctx context.Context, repositoryID string) ([]model.RepositoryContent, error) {
	query := `
	SELECT id, repository_id, path, type, content, parsed_json, metadata_json, domain, last_indexed
	FROM repository_contents
	WHERE repository_id = ?
	ORDER BY path
	`

	rows, err := s.db.QueryContext(ctx, query, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query repository contents: %w", err)
	}
	defer rows.Close()

	contents := make([]model.RepositoryContent, 0)
	for rows.Next() {
		var c model.RepositoryContent
		var typ, parsedJSON, metaJSON, lastIndexed string
		if err := rows.Scan(&c.ID, &c.RepositoryID, &c.Path, &typ, &c.Content, &parsedJSON, &metaJSON, &c.Domain, &lastIndexed); err != nil {
			return nil, fmt.Errorf("failed to scan repository content: %w", err)
		}
		c.Type = model.ContentType(typ)
		c.LastIndexed = parseTimestamp(lastIndexed)
		if err := json.Unmarshal([]byte(parsedJSON), &c.ParsedContent); err != nil {
			return nil, fmt.Errorf("failed to parse sections of %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata of %s: %w", c.ID, err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}
