// Package metadata derives identifiers, paths and topics for sections.
//
// IDs and path fragments are built from Slug, which is idempotent and only
// ever yields [a-z0-9-] with no leading or trailing hyphen. Topics are a naive
// frequency ranking of title and content words, not semantic extraction.
package metadata
