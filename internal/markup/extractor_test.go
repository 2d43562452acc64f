package markup

import (
	"strings"
	"testing"

	"github.com/nao1215/docingest/internal/fault"
)

// TestExtract tests section extraction.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("two sections with default config", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>A</h1><p>hello world this is long enough</p><h2>B</h2><p>also long enough content here</p>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(sections) != 2 {
			t.Fatalf("expected 2 sections, got %d", len(sections))
		}
		if sections[0].Title != "A" || sections[0].Level != 1 {
			t.Errorf("unexpected first section %+v", sections[0])
		}
		if sections[1].Title != "B" || sections[1].Level != 2 {
			t.Errorf("unexpected second section %+v", sections[1])
		}
		if sections[0].Content != "hello world this is long enough" {
			t.Errorf("unexpected content %q", sections[0].Content)
		}
		if strings.Contains(sections[0].Content, "also long") {
			t.Error("expected first window to stop at the next heading")
		}
	})

	t.Run("window stops at next heading of any level", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>A</h1><p>first section text</p><h4>D</h4><p>fourth level text</p><h1>E</h1><p>another top text</p>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 3 {
			t.Fatalf("expected 3 sections, got %d", len(sections))
		}
		if sections[0].Content != "first section text" {
			t.Errorf("unexpected content %q", sections[0].Content)
		}
		if sections[1].Level != 4 {
			t.Errorf("expected level 4, got %d", sections[1].Level)
		}
	})

	t.Run("nested subheading stays in the window", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>Guide</h1><div><h3>Step</h3><pre><code>go build ./cmd/app</code></pre></div><h2>Next</h2>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Next has an empty window and is dropped.
		if len(sections) != 2 {
			t.Fatalf("expected 2 sections, got %d: %+v", len(sections), sections)
		}
		if sections[0].Title != "Guide" || sections[1].Title != "Step" || sections[1].Level != 3 {
			t.Errorf("unexpected sections %+v", sections)
		}
		if !strings.Contains(sections[0].Content, "### Step") {
			t.Errorf("expected verbatim subheading, got %q", sections[0].Content)
		}
		if !strings.Contains(sections[0].Content, "```") {
			t.Errorf("expected fenced code, got %q", sections[0].Content)
		}
	})

	t.Run("extracts code blocks in order", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>Code</h1><p>Example code follows</p>` +
			`<pre><code class="language-go">fmt.Println("hi")</code></pre>` +
			`<div><pre class="lang-sh">go test ./...</pre></div>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 {
			t.Fatalf("expected 1 section, got %d", len(sections))
		}

		blocks := sections[0].CodeBlocks
		if len(blocks) != 2 {
			t.Fatalf("expected 2 code blocks, got %d", len(blocks))
		}
		if blocks[0].Code != `fmt.Println("hi")` || blocks[0].Language != "go" {
			t.Errorf("unexpected first block %+v", blocks[0])
		}
		if blocks[1].Code != "go test ./..." || blocks[1].Language != "sh" {
			t.Errorf("unexpected second block %+v", blocks[1])
		}
		if codes := sections[0].Codes(); len(codes) != 2 {
			t.Errorf("unexpected codes %v", codes)
		}
	})

	t.Run("nested pre is not counted twice", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>Nested</h1><pre>outer<pre>inner</pre></pre><p>text after the block</p>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 {
			t.Fatalf("expected 1 section, got %d", len(sections))
		}
		if len(sections[0].CodeBlocks) != 1 {
			t.Errorf("expected 1 code block, got %d", len(sections[0].CodeBlocks))
		}
	})

	t.Run("drops empty and long titles", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>  </h1><p>content that is long enough</p>` +
			`<h2>Too long title</h2><p>content that is long enough</p>` +
			`<h2>Fine</h2><p>content that is long enough</p>`
		sections, err := NewExtractor(WithTitleLength(1, 5)).Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 || sections[0].Title != "Fine" {
			t.Errorf("expected only 'Fine', got %+v", sections)
		}
	})

	t.Run("drops short content", func(t *testing.T) {
		t.Parallel()

		sections, err := NewExtractor().Extract(`<h1>Short</h1><p>tiny</p>`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 0 {
			t.Errorf("expected no sections, got %+v", sections)
		}

		sections, err = NewExtractor(WithMinContentLength(0)).Extract(`<h1>Short</h1><p>tiny</p>`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 {
			t.Errorf("expected 1 section with min length 0, got %d", len(sections))
		}
	})

	t.Run("preserve formatting keeps markup", func(t *testing.T) {
		t.Parallel()

		markup := `<h1>A</h1><p>hello world this is long enough</p>`
		sections, err := NewExtractor(WithPreserveFormatting(true)).Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 {
			t.Fatalf("expected 1 section, got %d", len(sections))
		}
		if sections[0].Content != "<p>hello world this is long enough</p>" {
			t.Errorf("unexpected content %q", sections[0].Content)
		}
		if sections[0].OriginalHTML != sections[0].Content {
			t.Error("expected original markup to be kept")
		}
	})

	t.Run("custom selectors", func(t *testing.T) {
		t.Parallel()

		markup := `<div class="title" aria-level="2">Custom</div><p>custom content here ok</p>` +
			`<div class="title">Plain</div><p>more custom content here</p>`
		sections, err := NewExtractor(WithCustomSelectors([]string{".title"})).Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 2 {
			t.Fatalf("expected 2 sections, got %d", len(sections))
		}
		if sections[0].Title != "Custom" || sections[0].Level != 2 {
			t.Errorf("unexpected first section %+v", sections[0])
		}
		if sections[1].Level != 1 {
			t.Errorf("expected default level 1, got %d", sections[1].Level)
		}
	})

	t.Run("invalid markup is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewExtractor().Extract(`<h1>A</h2><p>text</p>`)
		if !fault.IsKind(err, fault.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}

		lenient := NewExtractor(WithValidator(NewValidator(WithLenient(true))))
		if _, err := lenient.Extract(`<h1>A</h2><p>text</p>`); err != nil {
			t.Errorf("expected lenient extraction to succeed, got %v", err)
		}
	})
}

// TestExtractWithoutHeadings tests the synthetic whole-document section.
func TestExtractWithoutHeadings(t *testing.T) {
	t.Parallel()

	t.Run("uses document title", func(t *testing.T) {
		t.Parallel()

		markup := `<html><head><title>Doc Title</title></head><body><p>Just text</p><pre><code>x := 1</code></pre></body></html>`
		sections, err := NewExtractor().Extract(markup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 {
			t.Fatalf("expected 1 section, got %d", len(sections))
		}
		s := sections[0]
		if s.Title != "Doc Title" || s.Level != 1 {
			t.Errorf("unexpected section %+v", s)
		}
		if len(s.CodeBlocks) != 1 || s.CodeBlocks[0].Code != "x := 1" {
			t.Errorf("unexpected code blocks %+v", s.CodeBlocks)
		}
		if !strings.Contains(s.Content, "Just text") {
			t.Errorf("unexpected content %q", s.Content)
		}
	})

	t.Run("falls back to default title", func(t *testing.T) {
		t.Parallel()

		sections, err := NewExtractor().Extract(`<p>hi</p>`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 1 || sections[0].Title != "" {
			t.Errorf("expected one untitled section, got %+v", sections)
		}

		sections, err = NewExtractor(WithDefaultTitle("Untitled")).Extract(`<p>hi</p>`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sections[0].Title != "Untitled" {
			t.Errorf("expected default title, got %q", sections[0].Title)
		}
	})
}

// TestCandidates tests that k headings yield k candidates.
func TestCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		markup string
		want   int
	}{
		{`<p>none</p>`, 0},
		{`<h1>One</h1>`, 1},
		{`<h1>One</h1><p>x</p><h2>Two</h2><h3>Three</h3>`, 3},
		{`<section><h2>A</h2><div><h5>B</h5></div></section><h6>  </h6>`, 3},
	}

	for _, tt := range tests {
		t.Run(tt.markup, func(t *testing.T) {
			t.Parallel()

			candidates, err := NewExtractor().Candidates(tt.markup)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(candidates) != tt.want {
				t.Errorf("expected %d candidates, got %d", tt.want, len(candidates))
			}
		})
	}
}

// TestExtractMarkdown tests the markdown input path.
func TestExtractMarkdown(t *testing.T) {
	t.Parallel()

	t.Run("converts and extracts", func(t *testing.T) {
		t.Parallel()

		text := "# Title\n\nSome paragraph text that is long.\n\n## Sub\n\nMore text for the subsection.\n\n```go\nfmt.Println()\n```\n"
		sections, err := NewExtractor().ExtractMarkdown(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 2 {
			t.Fatalf("expected 2 sections, got %d", len(sections))
		}
		if sections[0].Title != "Title" || sections[1].Title != "Sub" || sections[1].Level != 2 {
			t.Errorf("unexpected sections %+v", sections)
		}
		if len(sections[1].CodeBlocks) != 1 || sections[1].CodeBlocks[0].Language != "go" {
			t.Errorf("unexpected code blocks %+v", sections[1].CodeBlocks)
		}
	})

	t.Run("rejects markdown without heading line", func(t *testing.T) {
		t.Parallel()

		_, err := NewExtractor().ExtractMarkdown("just some text\n  # indented is not a heading line\n")
		if !fault.IsKind(err, fault.KindParse) {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}

// TestNormalizer tests markdown normalization.
func TestNormalizer(t *testing.T) {
	t.Parallel()

	out, err := NewNormalizer().Normalize(`<h2>Title</h2><pre><code>x</code></pre>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "## Title") {
		t.Errorf("expected ATX heading, got %q", out)
	}
	if !strings.Contains(out, "```") {
		t.Errorf("expected fenced code, got %q", out)
	}

	out, err = NewNormalizer().Normalize("<pre><code class=\"language-go\">fmt.Println()\n</code></pre>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "```go\nfmt.Println()\n```" {
		t.Errorf("expected no blank line before closing fence, got %q", out)
	}
}

// TestCleanMarkdown tests whitespace cleanup around code fences.
func TestCleanMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing blank line in fence", "```go\nx := 1\n\n```", "```go\nx := 1\n```"},
		{"blank lines inside fence kept", "```\na\n\nb\n```", "```\na\n\nb\n```"},
		{"blank line before opening fence kept", "text\n\n```\ncode\n```", "text\n\n```\ncode\n```"},
		{"trailing spaces and excess blank lines", "a  \n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cleanMarkdown(tt.in); got != tt.want {
				t.Errorf("cleanMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestLanguageFromClass tests language hint parsing.
func TestLanguageFromClass(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"language-go":          "go",
		"hljs language-Python": "python",
		"lang-sh":              "sh",
		"highlight":            "",
		"":                     "",
	}
	for class, want := range tests {
		if got := languageFromClass(class); got != want {
			t.Errorf("languageFromClass(%q) = %q, want %q", class, got, want)
		}
	}
}
