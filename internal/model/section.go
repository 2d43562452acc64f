package model

// ExtractedSection is one heading-delimited part of a document.
//
// Level matches the heading depth that produced the section (1-6).
// Title is empty only for the synthetic whole-document section produced
// when a document has no headings. Sections are never mutated after
// extraction.
type ExtractedSection struct {
	// Title is the trimmed heading text.
	Title string `json:"title"`

	// Content is the section body, normalized to markdown unless the
	// extractor was configured to preserve formatting.
	Content string `json:"content"`

	// CodeBlocks contains the text of every preformatted block inside the
	// section window, in document order.
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`

	// Level is the heading depth.
	Level int `json:"level"`

	// OriginalHTML is the raw markup of the section window.
	// Only populated when formatting is preserved.
	OriginalHTML string `json:"original_html,omitempty"`
}

// CodeBlock is a preformatted block of source text.
type CodeBlock struct {
	// Code is the text content of the block.
	Code string `json:"code"`

	// Language is taken from a "language-xxx" or "lang-xxx" class when present.
	Language string `json:"language,omitempty"`
}

// Codes returns the bare code strings of the section.
func (s *ExtractedSection) Codes() []string {
	codes := make([]string, 0, len(s.CodeBlocks))
	for _, cb := range s.CodeBlocks {
		codes = append(codes, cb.Code)
	}
	return codes
}

// DocumentationMetadata identifies a section inside a source.
//
// ID is sourceID + "-" + slug(title) and Path is the base path with its
// trailing slash and fragment stripped, followed by "#" + slug(title).
// Order is level * 1000 so sections sort by depth first.
type DocumentationMetadata struct {
	ID       string   `json:"id"`
	SourceID string   `json:"source_id"`
	Title    string   `json:"title"`
	Topics   []string `json:"topics"`
	Path     string   `json:"path"`
	Order    int      `json:"order"`
}

// Document is the produced artifact for a single section.
// It is what gets handed to storage and to the search index.
type Document struct {
	// ID equals Metadata.ID.
	ID string `json:"id"`

	// Content is the section content.
	Content string `json:"content"`

	// Metadata describes where the section came from.
	Metadata DocumentationMetadata `json:"metadata"`

	// CodeBlocks are the section's code blocks.
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`

	// Level is the heading depth of the section.
	Level int `json:"level"`
}
