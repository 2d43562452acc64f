package markup

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/docingest/internal/fault"
)

// DefaultAllowedTags is the default tag whitelist.
// It covers the elements documentation sites commonly emit.
var DefaultAllowedTags = []string{
	// document
	"html", "head", "body", "title", "meta", "link", "base", "style", "script", "noscript", "template", "slot",
	// sectioning
	"main", "header", "footer", "nav", "section", "article", "aside", "address", "hgroup", "search",
	"h1", "h2", "h3", "h4", "h5", "h6",
	// grouping
	"div", "p", "hr", "pre", "blockquote", "ol", "ul", "li", "dl", "dt", "dd", "figure", "figcaption", "menu",
	// text-level
	"a", "em", "strong", "small", "s", "cite", "q", "dfn", "abbr", "ruby", "rt", "rp", "data", "time",
	"code", "var", "samp", "kbd", "sub", "sup", "i", "b", "u", "mark", "bdi", "bdo", "span", "br", "wbr",
	"del", "ins",
	// embedded
	"img", "picture", "source", "iframe", "embed", "object", "param", "video", "audio", "track", "map", "area",
	"canvas", "svg", "path", "g", "circle", "rect", "line", "polyline", "polygon", "ellipse", "use", "defs",
	"symbol", "desc", "text", "tspan", "clippath", "lineargradient", "radialgradient", "stop", "mask",
	// tables
	"table", "caption", "colgroup", "col", "tbody", "thead", "tfoot", "tr", "td", "th",
	// forms
	"form", "label", "input", "button", "select", "datalist", "optgroup", "option", "textarea", "output",
	"progress", "meter", "fieldset", "legend",
	// interactive
	"details", "summary", "dialog",
}

// voidElements never have closing tags.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {}, "input": {},
	"link": {}, "meta": {}, "param": {}, "source": {}, "track": {}, "wbr": {},
}

// Validator checks tag nesting and the tag whitelist.
type Validator struct {
	allowed map[string]struct{}
	lenient bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithAllowedTags replaces the tag whitelist. Tags are case-insensitive.
// An empty list keeps the default whitelist.
func WithAllowedTags(tags []string) ValidatorOption {
	return func(v *Validator) {
		if len(tags) == 0 {
			return
		}
		v.allowed = tagSet(tags)
	}
}

// WithLenient enables recovery from mismatched and unclosed tags.
func WithLenient(lenient bool) ValidatorOption {
	return func(v *Validator) {
		v.lenient = lenient
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{allowed: tagSet(DefaultAllowedTags)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

// Validate scans markup and returns a VALIDATION_ERROR describing the first
// problem found, or nil.
func (v *Validator) Validate(markup string) error {
	z := html.NewTokenizer(strings.NewReader(markup))
	stack := make([]string, 0, 32)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return fault.Wrap(fault.KindParse, err, "cannot tokenize markup")
			}
			return v.checkUnclosed(stack)

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := strings.ToLower(string(name))
			if _, ok := v.allowed[tag]; !ok {
				return fault.Newf(fault.KindValidation, "tag <%s> is not allowed", tag).With("tag", tag)
			}
			if tt == html.SelfClosingTagToken || isVoid(tag) {
				continue
			}
			stack = append(stack, tag)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := strings.ToLower(string(name))
			if isVoid(tag) {
				continue
			}

			var err error
			stack, err = v.closeTag(stack, tag)
			if err != nil {
				return err
			}
		}
	}
}

// closeTag pops tag from the stack.
func (v *Validator) closeTag(stack []string, tag string) ([]string, error) {
	if n := len(stack); n > 0 && stack[n-1] == tag {
		return stack[:n-1], nil
	}

	if !v.lenient {
		if len(stack) == 0 {
			return stack, fault.Newf(fault.KindValidation, "unexpected closing tag </%s>", tag).With("tag", tag)
		}
		expected := stack[len(stack)-1]
		return stack, fault.Newf(fault.KindValidation, "mismatched closing tag </%s>, expected </%s>", tag, expected).
			With("tag", tag).
			With("expected", expected)
	}

	// Unwind to the matching open tag if there is one; otherwise the stray
	// closing tag is dropped.
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return stack[:i], nil
		}
	}
	return stack, nil
}

func (v *Validator) checkUnclosed(stack []string) error {
	if len(stack) == 0 || v.lenient {
		return nil
	}
	return fault.New(fault.KindValidation, "unclosed tags").With("tags", strings.Join(stack, ","))
}

func isVoid(tag string) bool {
	_, ok := voidElements[tag]
	return ok
}
