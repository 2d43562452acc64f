package index

import (
	"path/filepath"
	"testing"

	"github.com/nao1215/docingest/internal/model"
)

func testDocuments() []model.Document {
	return []model.Document{
		{
			ID:      "guide-install",
			Content: "Download the binary and run the installer.",
			Level:   1,
			Metadata: model.DocumentationMetadata{
				ID: "guide-install", SourceID: "guide", Title: "Install", Path: "/guide#install", Topics: []string{"installer"},
			},
		},
		{
			ID:         "guide-usage",
			Content:    "Pass flags to change behaviour.",
			Level:      2,
			CodeBlocks: []model.CodeBlock{{Code: "widgets --verbose", Language: "sh"}},
			Metadata: model.DocumentationMetadata{
				ID: "guide-usage", SourceID: "guide", Title: "Usage", Path: "/guide#usage",
			},
		},
		{
			ID:      "",
			Content: "documents without an id are skipped",
		},
	}
}

// TestIndexDocuments tests indexing and searching.
func TestIndexDocuments(t *testing.T) {
	t.Parallel()

	idx, err := NewMemory()
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	defer idx.Close()

	n, err := idx.IndexDocuments(testDocuments())
	if err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 indexed documents, got %d", n)
	}

	// Re-indexing replaces by id.
	if _, err := idx.IndexDocuments(testDocuments()[:1]); err != nil {
		t.Fatalf("failed to reindex: %v", err)
	}
	count, err := idx.DocCount()
	if err != nil || count != 2 {
		t.Errorf("expected 2 documents, got %d, %v", count, err)
	}

	hits, err := idx.Search("installer", 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "guide-install" {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if hits[0].Title != "Install" || hits[0].Path != "/guide#install" || hits[0].SourceID != "guide" {
		t.Errorf("unexpected hit fields %+v", hits[0])
	}

	hits, err = idx.Search("verbose", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "guide-usage" {
		t.Errorf("expected code blocks to be searchable, got %+v", hits)
	}
}

// TestIndexBatches tests submitting more documents than one batch holds.
func TestIndexBatches(t *testing.T) {
	t.Parallel()

	idx, err := NewMemory()
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	defer idx.Close()
	idx.batchSize = 2

	docs := make([]model.Document, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		docs = append(docs, model.Document{ID: id, Content: "content " + id})
	}

	n, err := idx.IndexDocuments(docs)
	if err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 indexed documents, got %d", n)
	}
	if count, _ := idx.DocCount(); count != 5 {
		t.Errorf("expected 5 documents, got %d", count)
	}
}

// TestOpen tests creating and reopening an on-disk index.
func TestOpen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "index")

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if _, err := idx.IndexDocuments(testDocuments()); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	idx, err = Open(dir)
	if err != nil {
		t.Fatalf("failed to reopen index: %v", err)
	}
	defer idx.Close()

	count, err := idx.DocCount()
	if err != nil || count != 2 {
		t.Errorf("expected 2 documents after reopen, got %d, %v", count, err)
	}
}
