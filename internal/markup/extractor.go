package markup

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/docingest/internal/fault"
	"github.com/nao1215/docingest/internal/model"
)

// Default extraction limits.
const (
	DefaultMinTitleLength   = 1
	DefaultMaxTitleLength   = 200
	DefaultMinContentLength = 10
)

// headingSelector matches the standard heading elements.
const headingSelector = "h1, h2, h3, h4, h5, h6"

// Candidate is a heading found before any filtering.
type Candidate struct {
	Title string
	Level int
}

// Extractor decomposes markup into sections.
// It is safe for concurrent use once constructed.
type Extractor struct {
	validator          *Validator
	normalizer         *Normalizer
	customSelectors    []string
	minTitleLength     int
	maxTitleLength     int
	minContentLength   int
	preserveFormatting bool
	defaultTitle       string
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithValidator sets the validator run before extraction.
func WithValidator(v *Validator) ExtractorOption {
	return func(e *Extractor) {
		e.validator = v
	}
}

// WithCustomSelectors adds selectors treated as headings. Their level comes
// from an aria-level attribute and defaults to 1.
func WithCustomSelectors(selectors []string) ExtractorOption {
	return func(e *Extractor) {
		e.customSelectors = selectors
	}
}

// WithTitleLength sets the accepted title length range in characters.
func WithTitleLength(minLen, maxLen int) ExtractorOption {
	return func(e *Extractor) {
		e.minTitleLength = minLen
		e.maxTitleLength = maxLen
	}
}

// WithMinContentLength sets the minimum content length in characters.
func WithMinContentLength(n int) ExtractorOption {
	return func(e *Extractor) {
		e.minContentLength = n
	}
}

// WithPreserveFormatting keeps the raw window markup instead of converting
// it to markdown.
func WithPreserveFormatting(preserve bool) ExtractorOption {
	return func(e *Extractor) {
		e.preserveFormatting = preserve
	}
}

// WithDefaultTitle sets the title of the synthetic section used when a
// document has neither headings nor a <title>.
func WithDefaultTitle(title string) ExtractorOption {
	return func(e *Extractor) {
		e.defaultTitle = title
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		minTitleLength:   DefaultMinTitleLength,
		maxTitleLength:   DefaultMaxTitleLength,
		minContentLength: DefaultMinContentLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = NewValidator()
	}
	if e.normalizer == nil {
		e.normalizer = NewNormalizer()
	}
	return e
}

// Extract validates markup and returns its sections in document order.
func (e *Extractor) Extract(markup string) ([]model.ExtractedSection, error) {
	if err := e.validator.Validate(markup); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fault.Wrap(fault.KindParse, err, "cannot parse markup")
	}

	headings := doc.Find(e.selector())
	if headings.Length() == 0 {
		section, err := e.wholeDocument(doc)
		if err != nil {
			return nil, err
		}
		return []model.ExtractedSection{section}, nil
	}

	isHeading := make(map[*html.Node]struct{}, headings.Length())
	for _, n := range headings.Nodes {
		isHeading[n] = struct{}{}
	}

	sections := make([]model.ExtractedSection, 0, headings.Length())
	var extractErr error
	headings.EachWithBreak(func(_ int, h *goquery.Selection) bool {
		section, ok, err := e.section(doc, h, isHeading)
		if err != nil {
			extractErr = err
			return false
		}
		if ok {
			sections = append(sections, section)
		}
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return sections, nil
}

// Candidates validates markup and returns every heading before the title and
// content filters are applied.
func (e *Extractor) Candidates(markup string) ([]Candidate, error) {
	if err := e.validator.Validate(markup); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fault.Wrap(fault.KindParse, err, "cannot parse markup")
	}

	candidates := make([]Candidate, 0)
	doc.Find(e.selector()).Each(func(_ int, h *goquery.Selection) {
		candidates = append(candidates, Candidate{
			Title: strings.TrimSpace(h.Text()),
			Level: headingLevel(h),
		})
	})
	return candidates, nil
}

// selector returns the heading selector group.
func (e *Extractor) selector() string {
	if len(e.customSelectors) == 0 {
		return headingSelector
	}
	return headingSelector + ", " + strings.Join(e.customSelectors, ", ")
}

// section builds the section of heading h. ok is false when the section is
// filtered out.
func (e *Extractor) section(doc *goquery.Document, h *goquery.Selection, isHeading map[*html.Node]struct{}) (model.ExtractedSection, bool, error) {
	title := strings.TrimSpace(h.Text())
	titleLen := utf8.RuneCountInString(title)
	if title == "" || titleLen < e.minTitleLength || titleLen > e.maxTitleLength {
		return model.ExtractedSection{}, false, nil
	}

	window := windowNodes(h.Nodes[0], isHeading)

	var text strings.Builder
	for _, n := range window {
		collectText(&text, n)
	}
	if utf8.RuneCountInString(strings.TrimSpace(text.String())) < e.minContentLength {
		return model.ExtractedSection{}, false, nil
	}

	raw, err := renderNodes(window)
	if err != nil {
		return model.ExtractedSection{}, false, fault.Wrap(fault.KindParse, err, "cannot render section").With("title", title)
	}

	section := model.ExtractedSection{
		Title:      title,
		Level:      headingLevel(h),
		CodeBlocks: codeBlocks(doc, window),
	}
	if err := e.fillContent(&section, raw); err != nil {
		return model.ExtractedSection{}, false, err
	}
	return section, true, nil
}

// wholeDocument builds the synthetic section of a document without headings.
func (e *Extractor) wholeDocument(doc *goquery.Document) (model.ExtractedSection, error) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = e.defaultTitle
	}

	body := doc.Find("body")
	raw, err := body.Html()
	if err != nil {
		return model.ExtractedSection{}, fault.Wrap(fault.KindParse, err, "cannot render document")
	}

	section := model.ExtractedSection{
		Title:      title,
		Level:      1,
		CodeBlocks: codeBlocks(doc, body.Nodes),
	}
	if err := e.fillContent(&section, raw); err != nil {
		return model.ExtractedSection{}, err
	}
	return section, nil
}

// fillContent sets Content (and OriginalHTML when formatting is preserved).
func (e *Extractor) fillContent(section *model.ExtractedSection, raw string) error {
	raw = strings.TrimSpace(raw)
	if e.preserveFormatting {
		section.Content = raw
		section.OriginalHTML = raw
		return nil
	}

	content, err := e.normalizer.Normalize(raw)
	if err != nil {
		return fault.Wrap(fault.KindParse, err, "cannot normalize section").With("title", section.Title)
	}
	section.Content = content
	return nil
}

// windowNodes returns the siblings following heading up to, not including,
// the next heading of any level.
func windowNodes(heading *html.Node, isHeading map[*html.Node]struct{}) []*html.Node {
	nodes := make([]*html.Node, 0)
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		if _, ok := isHeading[n]; ok {
			break
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// headingLevel returns the depth of a heading element. Custom headings use
// aria-level, falling back to 1.
func headingLevel(h *goquery.Selection) int {
	name := goquery.NodeName(h)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	if lvl, err := strconv.Atoi(h.AttrOr("aria-level", "")); err == nil && lvl >= 1 && lvl <= 6 {
		return lvl
	}
	return 1
}

// codeBlocks returns the <pre> blocks inside nodes in encounter order.
// A <pre> nested inside another <pre> is part of the outer block.
func codeBlocks(doc *goquery.Document, nodes []*html.Node) []model.CodeBlock {
	blocks := make([]model.CodeBlock, 0)
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		sel := doc.FindNodes(n)
		sel.Find("pre").AddBack().Filter("pre").Each(func(_ int, pre *goquery.Selection) {
			if pre.ParentsFiltered("pre").Length() > 0 {
				return
			}
			blocks = append(blocks, codeBlock(pre))
		})
	}
	return blocks
}

func codeBlock(pre *goquery.Selection) model.CodeBlock {
	code := pre.Find("code").First()
	text := pre.Text()
	lang := languageFromClass(pre.AttrOr("class", ""))
	if code.Length() > 0 {
		text = code.Text()
		if l := languageFromClass(code.AttrOr("class", "")); l != "" {
			lang = l
		}
	}
	return model.CodeBlock{
		Code:     strings.TrimRight(text, "\n"),
		Language: lang,
	}
}

// languageFromClass extracts "go" from class="language-go" or "lang-go".
func languageFromClass(class string) string {
	for _, c := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(c, prefix); ok && lang != "" {
				return strings.ToLower(lang)
			}
		}
	}
	return ""
}

func collectText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}

func renderNodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
