// Package database provides SQLite-based storage for docingest.
//
// This package implements the Store, which keeps:
//   - The repository registry and the metadata fetched for each repository
//   - Processed repository files
//   - Documents produced from crawled pages and repository content
//   - Crawled page records
//   - Ingestion reports for history
//
// Every write is an UPSERT on the natural key, so storing the same item
// twice overwrites it.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode provides good concurrent read performance
package database
