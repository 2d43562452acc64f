package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Page represents a crawled web page.
// It holds the raw response data together with what the crawler learned
// from it.
//
// Design decision: We keep the raw bytes next to the hash because:
// 1. The hash lets storage detect unchanged pages on recrawl
// 2. Raw content can be re-extracted with different settings
type Page struct {
	// URL is the normalized page URL.
	URL string `json:"url"`

	// Parent is the URL of the page that linked here. Empty for the start page.
	Parent string `json:"parent,omitempty"`

	// Depth is the number of links followed from the start page.
	Depth int `json:"depth"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	// Keys are canonicalized header names.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type"`

	// Title is the page title extracted from <title> tag.
	// Empty for non-HTML content.
	Title string `json:"title,omitempty"`

	// Rendered is true when the content came from the script renderer.
	Rendered bool `json:"rendered"`

	// SectionCount is the number of sections extracted from the page.
	SectionCount int `json:"section_count"`

	// FetchedAt is when the content was acquired.
	FetchedAt time.Time `json:"fetched_at"`

	// Raw contains the response body.
	// Limited to MaxPageSize bytes.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of the raw content.
	Hash string `json:"hash"`
}

// MaxPageSize is the maximum size of raw page content to store.
// Larger pages are truncated to this size.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the page content type indicates HTML.
// Content types with parameters (charset) are accepted.
func (p *Page) IsHTML() bool {
	ct := mediaType(p.ContentType)
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// IsMarkdown returns true if the page content type indicates markdown.
func (p *Page) IsMarkdown() bool {
	ct := mediaType(p.ContentType)
	return ct == "text/markdown" || ct == "text/x-markdown"
}

// TruncateRaw ensures the raw content doesn't exceed MaxPageSize.
// Call this after setting Raw to enforce the size limit.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

func mediaType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
