package markup

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// Normalizer converts markup windows to markdown with ATX headings and
// fenced code blocks.
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:   "atx",
		CodeBlockStyle: "fenced",
		Fence:          "```",
	})
	converter.Use(plugin.GitHubFlavored())

	return &Normalizer{converter: converter}
}

// Normalize converts markup to markdown.
func (n *Normalizer) Normalize(markup string) (string, error) {
	out, err := n.converter.ConvertString(markup)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(out), nil
}

// cleanMarkdown trims trailing spaces on every line, drops blank lines
// before a closing code fence and collapses runs of blank lines.
func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			if inFence {
				// The converter keeps the newline that ends <pre><code>.
				for len(out) > 0 && out[len(out)-1] == "" {
					out = out[:len(out)-1]
				}
			}
			inFence = !inFence
		}
		out = append(out, line)
	}
	content = strings.Join(out, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
