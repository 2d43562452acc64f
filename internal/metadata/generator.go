package metadata

import (
	"strconv"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// orderStride separates heading levels in DocumentationMetadata.Order.
const orderStride = 1000

// Generator derives DocumentationMetadata from sections.
type Generator struct {
	maxTopics      int
	minTopicLength int
	stopwords      map[string]struct{}
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxTopics sets how many topics are kept.
func WithMaxTopics(n int) Option {
	return func(g *Generator) {
		g.maxTopics = n
	}
}

// WithMinTopicLength sets the minimum topic length in characters.
func WithMinTopicLength(n int) Option {
	return func(g *Generator) {
		g.minTopicLength = n
	}
}

// WithStopwords replaces the stopword list. An empty list keeps the default.
func WithStopwords(words []string) Option {
	return func(g *Generator) {
		if len(words) > 0 {
			g.stopwords = StopwordSet(words)
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		maxTopics:      DefaultMaxTopics,
		minTopicLength: DefaultMinTopicLength,
		stopwords:      StopwordSet(DefaultStopwords),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the metadata of section within sourceID at basePath.
func (g *Generator) Generate(section model.ExtractedSection, sourceID, basePath string) model.DocumentationMetadata {
	slug := Slug(section.Title)
	return model.DocumentationMetadata{
		ID:       sourceID + "-" + slug,
		SourceID: sourceID,
		Title:    section.Title,
		Topics:   Topics(section.Title+" "+section.Content, g.maxTopics, g.minTopicLength, g.stopwords),
		Path:     trimBasePath(basePath) + "#" + slug,
		Order:    section.Level * orderStride,
	}
}

// Documents builds the produced artifacts of all sections of one source.
// When two sections share a slug, later ones get a "-2", "-3", ... suffix on
// their id and path so neither overwrites the other in storage.
func (g *Generator) Documents(sections []model.ExtractedSection, sourceID, basePath string) []model.Document {
	docs := make([]model.Document, 0, len(sections))
	seen := make(map[string]int, len(sections))

	for _, section := range sections {
		meta := g.Generate(section, sourceID, basePath)
		seen[meta.ID]++
		if n := seen[meta.ID]; n > 1 {
			suffix := "-" + strconv.Itoa(n)
			meta.ID += suffix
			meta.Path += suffix
		}

		docs = append(docs, model.Document{
			ID:         meta.ID,
			Content:    section.Content,
			Metadata:   meta,
			CodeBlocks: section.CodeBlocks,
			Level:      section.Level,
		})
	}
	return docs
}

// trimBasePath removes the fragment and trailing slashes of basePath.
func trimBasePath(basePath string) string {
	if i := strings.IndexByte(basePath, '#'); i >= 0 {
		basePath = basePath[:i]
	}
	return strings.TrimRight(basePath, "/")
}
