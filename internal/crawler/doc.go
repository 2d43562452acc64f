// Package crawler explores documentation sites.
//
// # Architecture
//
// The Spider coordinates the crawl. It runs a breadth-first traversal over
// a model.Frontier, one page at a time, and hands every page to the
// markup Extractor and the metadata Generator. Fetches go through the
// shared fetch.Fetcher, so the process-wide concurrency cap and retry
// policy apply to crawling as well.
//
// Design decision: The traversal is sequential because:
//  1. Visit order stays deterministic for a given site
//  2. The frontier needs no locking
//  3. Parallelism is already bounded by the Fetcher's slots
//
// # Components
//
//   - Spider: breadth-first traversal, content tree and document output
//   - Parser: title, link and hosted-repository reference extraction
//
// # Politeness
//
//   - Delay between requests (configurable)
//   - Page budget and depth limit
//   - Only links on the start host are followed
//   - Ignore/follow glob patterns on the URL path
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxDepth(2))
//	result, err := spider.Crawl(ctx, "https://docs.example.com/")
package crawler
