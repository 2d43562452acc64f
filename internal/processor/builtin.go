package processor

import (
	"path"
	"strings"

	"github.com/nao1215/docingest/internal/markup"
	"github.com/nao1215/docingest/internal/model"
)

// Markdown processes markdown files.
type Markdown struct {
	extractor *markup.Extractor
}

// NewMarkdown creates a Markdown processor.
func NewMarkdown(extractor *markup.Extractor) *Markdown {
	return &Markdown{extractor: extractor}
}

// Name implements Processor.
func (m *Markdown) Name() string { return "markdown" }

// CanProcess implements Processor.
func (m *Markdown) CanProcess(p string, _ FileInfo) bool {
	switch ext(p) {
	case ".md", ".mdx", ".markdown":
		return true
	default:
		return false
	}
}

// Process implements Processor.
func (m *Markdown) Process(content string, _ FileInfo) (*Result, error) {
	sections, err := m.extractor.ExtractMarkdown(content)
	if err != nil {
		return nil, err
	}
	return &Result{Sections: sections, Language: "markdown"}, nil
}

// HTML processes HTML files.
type HTML struct {
	extractor *markup.Extractor
}

// NewHTML creates an HTML processor.
func NewHTML(extractor *markup.Extractor) *HTML {
	return &HTML{extractor: extractor}
}

// Name implements Processor.
func (h *HTML) Name() string { return "html" }

// CanProcess implements Processor.
func (h *HTML) CanProcess(p string, _ FileInfo) bool {
	e := ext(p)
	return e == ".html" || e == ".htm"
}

// Process implements Processor.
func (h *HTML) Process(content string, _ FileInfo) (*Result, error) {
	sections, err := h.extractor.Extract(content)
	if err != nil {
		return nil, err
	}
	return &Result{Sections: sections, Language: "html"}, nil
}

// languages maps source extensions to language names.
var languages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".proto": "protobuf",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".json":  "json",
}

// languageOf returns the language of a path by extension, or "".
func languageOf(p string) string {
	return languages[ext(p)]
}

// DefaultMaxCodeSize is the largest source file the Code processor accepts.
const DefaultMaxCodeSize = 256 * 1024

// Code processes source files as a single code section.
type Code struct {
	maxSize int
}

// NewCode creates a Code processor. maxSize <= 0 uses DefaultMaxCodeSize.
func NewCode(maxSize int) *Code {
	if maxSize <= 0 {
		maxSize = DefaultMaxCodeSize
	}
	return &Code{maxSize: maxSize}
}

// Name implements Processor.
func (c *Code) Name() string { return "code" }

// CanProcess implements Processor. Files reported larger than the limit are
// rejected up front.
func (c *Code) CanProcess(p string, info FileInfo) bool {
	if languageOf(p) == "" {
		return false
	}
	return info.Size <= c.maxSize
}

// Process implements Processor.
func (c *Code) Process(content string, info FileInfo) (*Result, error) {
	lang := languageOf(info.Path)
	code := strings.TrimRight(content, "\n")

	section := model.ExtractedSection{
		Title:      path.Base(info.Path),
		Content:    "```" + lang + "\n" + code + "\n```",
		CodeBlocks: []model.CodeBlock{{Code: code, Language: lang}},
		Level:      1,
	}
	return &Result{Sections: []model.ExtractedSection{section}, Language: lang}, nil
}

// NewDefaultRegistry registers the built-in processors: markdown, HTML and
// code, in that order.
func NewDefaultRegistry(extractor *markup.Extractor, maxCodeSize int) *Registry {
	return NewRegistry(
		NewMarkdown(extractor),
		NewHTML(extractor),
		NewCode(maxCodeSize),
	)
}
