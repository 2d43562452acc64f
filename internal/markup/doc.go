// Package markup validates markup and decomposes it into sections.
//
// # Validation
//
// Validator performs a single left-to-right scan over the tag tokens of a
// document. Opening tags must be whitelisted; closing tags must match the
// innermost open tag. Void elements (br, hr, img, input, meta, ...) and
// self-closing tags never touch the stack. In lenient mode mismatched closing
// tags and unclosed tags are recovered silently instead of failing.
//
// # Extraction
//
// Extractor locates headings (h1-h6 plus optional custom selectors) in
// document order. Each heading starts a section whose content window is the
// run of following siblings up to the next heading of any level. The rule is
// flat: a level-1 window ends at a level-3 heading just like it ends at
// another level-1 heading. Windows are normalized to markdown with ATX
// headings and fenced code unless formatting is preserved.
//
// A document without headings yields one synthetic level-1 section titled
// after the document title.
//
// Markdown input is converted to HTML with goldmark and then goes through the
// same path. Input without any line starting with "#" is rejected with
// PARSE_ERROR.
package markup
