package index

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/nao1215/docingest/internal/model"
)

// DefaultBatchSize is how many documents are submitted per bleve batch.
const DefaultBatchSize = 100

// DefaultSearchSize is the number of hits Search returns by default.
const DefaultSearchSize = 10

// entry is the indexed shape of a document.
type entry struct {
	SourceID string   `json:"source_id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Path     string   `json:"path"`
	Topics   []string `json:"topics"`
	Level    int      `json:"level"`
	Code     string   `json:"code"`
}

func newEntry(doc model.Document) entry {
	codes := make([]string, 0, len(doc.CodeBlocks))
	for _, cb := range doc.CodeBlocks {
		codes = append(codes, cb.Code)
	}
	return entry{
		SourceID: doc.Metadata.SourceID,
		Title:    doc.Metadata.Title,
		Content:  doc.Content,
		Path:     doc.Metadata.Path,
		Topics:   doc.Metadata.Topics,
		Level:    doc.Level,
		Code:     strings.Join(codes, "\n"),
	}
}

// Hit is a search result.
type Hit struct {
	ID       string
	Score    float64
	Title    string
	Path     string
	SourceID string
}

// Index wraps a bleve index of documents.
type Index struct {
	idx       bleve.Index
	batchSize int
}

// Open opens the index at dir, creating it when it does not exist.
func Open(dir string) (*Index, error) {
	if _, err := os.Stat(dir); err == nil {
		idx, err := bleve.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		return &Index{idx: idx, batchSize: DefaultBatchSize}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check index path: %w", err)
	}

	idx, err := bleve.New(dir, bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{idx: idx, batchSize: DefaultBatchSize}, nil
}

// NewMemory creates an in-memory index.
func NewMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory index: %w", err)
	}
	return &Index{idx: idx, batchSize: DefaultBatchSize}, nil
}

// Close closes the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

// IndexDocuments adds or replaces docs and returns how many were indexed.
func (i *Index) IndexDocuments(docs []model.Document) (int, error) {
	batch := i.idx.NewBatch()
	indexed := 0
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if err := batch.Index(doc.ID, newEntry(doc)); err != nil {
			return indexed, fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}
		if batch.Size() >= i.batchSize {
			if err := i.idx.Batch(batch); err != nil {
				return indexed, fmt.Errorf("failed to index batch: %w", err)
			}
			indexed += batch.Size()
			batch.Reset()
		}
	}

	if batch.Size() > 0 {
		n := batch.Size()
		if err := i.idx.Batch(batch); err != nil {
			return indexed, fmt.Errorf("failed to index final batch: %w", err)
		}
		indexed += n
	}
	return indexed, nil
}

// DocCount returns the number of indexed documents.
func (i *Index) DocCount() (uint64, error) {
	return i.idx.DocCount()
}

// Search runs a match query over all fields.
func (i *Index) Search(query string, size int) ([]Hit, error) {
	if size <= 0 {
		size = DefaultSearchSize
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = size
	req.Fields = []string{"title", "path", "source_id"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["path"].(string); ok {
			hit.Path = v
		}
		if v, ok := h.Fields["source_id"].(string); ok {
			hit.SourceID = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
