// Package index feeds produced documents into a bleve full-text index.
//
// The index is a downstream sink: the SQLite store remains the source of
// truth and the index can be rebuilt from it at any time. Document IDs are
// the index keys, so re-indexing a document replaces it.
package index
