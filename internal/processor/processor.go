package processor

import (
	"path"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// FileInfo describes the file being processed.
type FileInfo struct {
	// Repository is the metadata of the owning repository.
	Repository *model.RepositoryMetadata

	// Path is the repository-relative path.
	Path string

	// SHA is the blob hash reported by the host, if known.
	SHA string

	// Size is the file size in bytes, if known.
	Size int
}

// Result is the output of a processor.
type Result struct {
	// Sections is the parsed content.
	Sections []model.ExtractedSection

	// Language is the detected language, if any.
	Language string
}

// Processor converts file content into sections.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string

	// CanProcess reports whether the processor handles the file.
	CanProcess(path string, info FileInfo) bool

	// Process parses content.
	Process(content string, info FileInfo) (*Result, error)
}

// Registry holds processors in registration order.
type Registry struct {
	processors []Processor
}

// NewRegistry creates a registry with the given processors.
func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{}
	for _, p := range processors {
		r.Register(p)
	}
	return r
}

// Register appends p. Earlier registrations take precedence.
func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

// Find returns the first processor that accepts the file.
func (r *Registry) Find(path string, info FileInfo) (Processor, bool) {
	for _, p := range r.processors {
		if p.CanProcess(path, info) {
			return p, true
		}
	}
	return nil, false
}

// ext returns the lowercase extension of p including the dot.
func ext(p string) string {
	return strings.ToLower(path.Ext(p))
}
