package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the data directory.
const FileName = "docingest.db"

// Store provides SQLite-based storage for ingestion data.
//
// Design decision: We use a single database file for all repositories and
// sites rather than one per source. This keeps registry lookups and
// history queries simple.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Registry entries, configured or synthesized on first index
	CREATE TABLE IF NOT EXISTS repositories (
		key TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		importance INTEGER NOT NULL DEFAULT 1,
		is_official INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]'
	);

	-- Metadata fetched from the hosting service, refreshed on every index
	CREATE TABLE IF NOT EXISTS repository_metadata (
		key TEXT PRIMARY KEY,
		metadata_json TEXT NOT NULL,
		last_indexed TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metadata_last_indexed ON repository_metadata(last_indexed);

	-- Processed repository files; id is "owner/name/path"
	CREATE TABLE IF NOT EXISTS repository_contents (
		id TEXT PRIMARY KEY,
		repository_id TEXT NOT NULL,
		path TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		parsed_json TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		domain TEXT,
		last_indexed TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contents_repository ON repository_contents(repository_id);

	-- Section documents from pages and files
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL,
		path TEXT NOT NULL,
		level INTEGER NOT NULL,
		content TEXT NOT NULL,
		document_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);

	-- Crawled pages
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		parent TEXT,
		depth INTEGER,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		rendered INTEGER NOT NULL DEFAULT 0,
		section_count INTEGER NOT NULL DEFAULT 0,
		raw_hash TEXT,
		headers TEXT,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);

	-- Ingestion reports as JSON
	CREATE TABLE IF NOT EXISTS ingest_reports (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		report_json TEXT NOT NULL,
		failure_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_target ON ingest_reports(target);
	CREATE INDEX IF NOT EXISTS idx_reports_started_at ON ingest_reports(started_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// timestampLayout has a fixed-width fraction so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores times as sortable UTC text.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // what formatTimestamp writes
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// marshalJSON encodes v for a TEXT column.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isNoRows reports whether err means the row does not exist.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
