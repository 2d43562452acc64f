package markup

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/model"
)

// markdownHeadingRe matches a line starting with one or more '#'.
var markdownHeadingRe = regexp.MustCompile(`(?m)^#+`)

// markdownRenderer converts markdown to HTML. goldmark renderers are safe for
// concurrent use.
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// MarkdownToHTML converts markdown text to HTML.
// Input without a heading line is rejected with PARSE_ERROR.
func MarkdownToHTML(text string) (string, error) {
	if !markdownHeadingRe.MatchString(text) {
		return "", fault.New(fault.KindParse, "markdown has no heading line")
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fault.Wrap(fault.KindParse, err, "cannot convert markdown")
	}
	return buf.String(), nil
}

// ExtractMarkdown converts markdown to HTML and extracts its sections.
func (e *Extractor) ExtractMarkdown(text string) ([]model.ExtractedSection, error) {
	markup, err := MarkdownToHTML(text)
	if err != nil {
		return nil, err
	}
	return e.Extract(markup)
}
