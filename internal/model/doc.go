// Package model defines the core data structures used throughout docingest.
//
// This package contains the following main types:
//   - ExtractedSection / Document: structured content produced from a page or file
//   - RepositoryConfig / RepositoryMetadata / RepositoryContent: hosted repository records
//   - IndexingResult: the per-repository indexing state machine
//   - Frontier / ContentNode / CrawlResult: site crawl state and output
//   - IngestReport: the result of one docingest invocation
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, walker, database, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
