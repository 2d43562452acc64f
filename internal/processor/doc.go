// Package processor turns repository files into sections.
//
// A Processor declares which files it handles (CanProcess) and converts
// their content (Process). The Registry asks processors in registration
// order and the first match wins; a file no processor accepts is skipped
// without error.
//
// Built-in processors:
//   - Markdown (.md, .mdx, .markdown): goldmark conversion, then section extraction
//   - HTML (.html, .htm): validation and section extraction
//   - Code (known source extensions): the whole file as one code section
package processor
