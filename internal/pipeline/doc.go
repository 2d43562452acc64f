// Package pipeline provides a framework for executing ingestion steps in
// sequence.
//
// An ingestion run moves through these stages: crawling a documentation
// site, indexing the repositories it references (or that were requested
// explicitly), feeding documents to the search index, and persisting the
// results. Each stage is implemented as a Step that receives the current
// report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running runs
//
// Repository indexing fans out with errgroup under a concurrency limit; see
// BatchProcessor.
package pipeline
