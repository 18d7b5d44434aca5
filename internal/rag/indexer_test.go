package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tarnished-labs/lorekeeper/internal/chunker"
	"github.com/tarnished-labs/lorekeeper/internal/corpus"
)

func testCorpus() []corpus.Document {
	long := strings.Repeat("The Lands Between hold many secrets. Grace guides the Tarnished onward. ", 40)
	return []corpus.Document{
		{ID: "doc-short", URL: "https://wiki.example.com/short", Title: "Short", Text: "A single short page."},
		{ID: "doc-long", URL: "https://wiki.example.com/long", Title: "Long", Text: long},
	}
}

func TestIndexDocuments(t *testing.T) {
	ctx := context.Background()
	cfg := chunker.DefaultConfig()

	t.Run("Indexes a corpus", func(t *testing.T) {
		embedder := newMockEmbedder()
		index, _ := NewMemoryIndex(embedder.GetModel(), embedder.GetDimension())

		report, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if report.Documents != 2 {
			t.Errorf("Expected 2 documents, got %d", report.Documents)
		}
		if report.Chunks < 4 {
			t.Errorf("Expected the long document to produce several chunks, got %d total", report.Chunks)
		}
		if report.Embedded != report.Chunks {
			t.Errorf("Expected all %d chunks embedded, got %d", report.Chunks, report.Embedded)
		}

		stats, err := index.GetStats(ctx)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if stats.RowCount != int64(report.Chunks) {
			t.Errorf("Expected %d records in the index, got %d", report.Chunks, stats.RowCount)
		}
	})

	t.Run("Second run skips existing chunks", func(t *testing.T) {
		embedder := newMockEmbedder()
		index, _ := NewMemoryIndex(embedder.GetModel(), embedder.GetDimension())

		first, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		second, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if second.Skipped != first.Chunks {
			t.Errorf("Expected all %d chunks skipped on re-run, got %d", first.Chunks, second.Skipped)
		}
		if second.Embedded != 0 {
			t.Errorf("Expected nothing embedded on re-run, got %d", second.Embedded)
		}

		stats, _ := index.GetStats(ctx)
		if stats.RowCount != int64(first.Chunks) {
			t.Errorf("Expected no duplicates after re-run, got %d records for %d chunks", stats.RowCount, first.Chunks)
		}
	})

	t.Run("Force reindex re-embeds everything", func(t *testing.T) {
		embedder := newMockEmbedder()
		index, _ := NewMemoryIndex(embedder.GetModel(), embedder.GetDimension())

		first, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		opts := DefaultIndexOptions()
		opts.ForceReindex = true
		second, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, opts)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if second.Embedded != first.Chunks {
			t.Errorf("Expected %d chunks re-embedded, got %d", first.Chunks, second.Embedded)
		}

		stats, _ := index.GetStats(ctx)
		if stats.RowCount != int64(first.Chunks) {
			t.Errorf("Expected no duplicates after force reindex, got %d", stats.RowCount)
		}
	})

	t.Run("Batch size bounds embedding calls", func(t *testing.T) {
		embedder := newMockEmbedder()
		var batchSizes []int
		embedder.embedFunc = func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
			batchSizes = append(batchSizes, len(texts))
			records := make([]EmbeddingRecord, len(texts))
			for i, text := range texts {
				records[i] = EmbeddingRecord{Text: text, Embedding: []float32{1, 0, 0}, Index: i, Model: "mock-embedder"}
			}
			return records, nil
		}
		index, _ := NewMemoryIndex("mock-embedder", 3)

		opts := DefaultIndexOptions()
		opts.BatchSize = 2
		report, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, opts)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(batchSizes) != report.Batches {
			t.Errorf("Expected %d embedding calls, got %d", report.Batches, len(batchSizes))
		}
		for i, size := range batchSizes {
			if size > 2 {
				t.Errorf("Batch %d exceeded the configured size: %d", i, size)
			}
		}
	})

	t.Run("Mid-run failure keeps committed batches", func(t *testing.T) {
		embedder := newMockEmbedder()
		calls := 0
		embedder.embedFunc = func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
			calls++
			if calls > 1 {
				return nil, fmt.Errorf("%w: provider down", ErrEmbeddingFailed)
			}
			records := make([]EmbeddingRecord, len(texts))
			for i, text := range texts {
				records[i] = EmbeddingRecord{Text: text, Embedding: []float32{1, 0, 0}, Index: i, Model: "mock-embedder"}
			}
			return records, nil
		}
		index, _ := NewMemoryIndex("mock-embedder", 3)

		opts := DefaultIndexOptions()
		opts.BatchSize = 2
		report, err := IndexDocuments(ctx, testCorpus(), cfg, embedder, index, opts)
		if err == nil {
			t.Fatal("Expected error from the failing batch")
		}
		if report == nil || report.Embedded != 2 {
			t.Fatalf("Expected the first batch committed, got %+v", report)
		}

		stats, _ := index.GetStats(ctx)
		if stats.RowCount != 2 {
			t.Errorf("Expected 2 records from the committed batch, got %d", stats.RowCount)
		}
	})

	t.Run("Empty corpus", func(t *testing.T) {
		embedder := newMockEmbedder()
		index, _ := NewMemoryIndex(embedder.GetModel(), embedder.GetDimension())

		report, err := IndexDocuments(ctx, nil, cfg, embedder, index, DefaultIndexOptions())
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if report.Chunks != 0 || report.Embedded != 0 {
			t.Errorf("Expected empty report, got %+v", report)
		}
	})

	t.Run("Nil collaborators", func(t *testing.T) {
		index, _ := NewMemoryIndex("mock-embedder", 3)
		if _, err := IndexDocuments(ctx, testCorpus(), cfg, nil, index, DefaultIndexOptions()); err == nil {
			t.Error("Expected error for nil embedder")
		}
		if _, err := IndexDocuments(ctx, testCorpus(), cfg, newMockEmbedder(), nil, DefaultIndexOptions()); err == nil {
			t.Error("Expected error for nil index")
		}
	})
}

func TestChunkID(t *testing.T) {
	id := ChunkID("doc-1", 0)
	if len(id) != 64 {
		t.Errorf("Expected 64 hex digits, got %d", len(id))
	}
	if id != ChunkID("doc-1", 0) {
		t.Error("Expected deterministic IDs for the same document and position")
	}
	if id == ChunkID("doc-1", 1) {
		t.Error("Expected distinct IDs for distinct positions")
	}
	if id == ChunkID("doc-2", 0) {
		t.Error("Expected distinct IDs for distinct documents")
	}
}
