package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockEmbedder implements the Embedder interface for testing
type mockEmbedder struct {
	model     string
	dimension int
	embedFunc func(ctx context.Context, texts []string) ([]EmbeddingRecord, error)
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-embedder", dimension: 3}
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	// Default: derive a unit-ish vector from the text length
	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: []float32{float32(len(text)), 1, 0},
			Index:     i,
			Model:     m.model,
		}
	}
	return records, nil
}

func (m *mockEmbedder) GetModel() string {
	return m.model
}

func (m *mockEmbedder) GetDimension() int {
	return m.dimension
}

// mockIndex implements the VectorIndex interface for testing
type mockIndex struct {
	model      string
	hits       []RetrievedPassage
	searchFunc func(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error)
}

func newMockIndex(hits ...RetrievedPassage) *mockIndex {
	return &mockIndex{model: "mock-embedder", hits: hits}
}

func (m *mockIndex) Upsert(ctx context.Context, records []ChunkRecord) error { return nil }

func (m *mockIndex) Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, queryVector, topK, opts)
	}
	hits := m.hits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *mockIndex) Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (m *mockIndex) Delete(ctx context.Context, chunkIDs []string) error { return nil }

func (m *mockIndex) Flush(ctx context.Context) error { return nil }

func (m *mockIndex) GetStats(ctx context.Context) (IndexStats, error) {
	return IndexStats{Collection: "mock", RowCount: int64(len(m.hits)), Dimension: 3, Model: m.model}, nil
}

func (m *mockIndex) GetEmbeddingModel() string { return m.model }

func (m *mockIndex) Close() error { return nil }

func TestNewRetriever(t *testing.T) {
	embedder := newMockEmbedder()
	index := newMockIndex()

	t.Run("Valid parameters", func(t *testing.T) {
		retriever, err := NewRetriever(embedder, index)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if retriever == nil {
			t.Fatal("Expected retriever to be non-nil")
		}
	})

	t.Run("Nil embedder", func(t *testing.T) {
		_, err := NewRetriever(nil, index)
		if err == nil {
			t.Fatal("Expected error for nil embedder")
		}
	})

	t.Run("Nil index", func(t *testing.T) {
		_, err := NewRetriever(embedder, nil)
		if err == nil {
			t.Fatal("Expected error for nil index")
		}
	})

	t.Run("Model mismatch", func(t *testing.T) {
		other := newMockIndex()
		other.model = "another-model"
		_, err := NewRetriever(embedder, other)
		if !errors.Is(err, ErrModelMismatch) {
			t.Errorf("Expected ErrModelMismatch, got %v", err)
		}
	})
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder()

	t.Run("Results ordered by descending score", func(t *testing.T) {
		// Index returns hits out of order; the retriever must fix that.
		index := newMockIndex(
			RetrievedPassage{ChunkID: "c1", DocumentID: "d1", Text: "low", Score: 0.31},
			RetrievedPassage{ChunkID: "c2", DocumentID: "d2", Text: "high", Score: 0.92},
			RetrievedPassage{ChunkID: "c3", DocumentID: "d3", Text: "mid", Score: 0.58},
		)
		retriever, err := NewRetriever(embedder, index)
		if err != nil {
			t.Fatalf("Failed to create retriever: %v", err)
		}

		passages, err := retriever.Retrieve(ctx, "who is malenia", 3, nil)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(passages) != 3 {
			t.Fatalf("Expected 3 passages, got %d", len(passages))
		}
		for i := 1; i < len(passages); i++ {
			if passages[i].Score > passages[i-1].Score {
				t.Fatalf("Passages out of order at %d: %.2f > %.2f", i, passages[i].Score, passages[i-1].Score)
			}
		}
		if passages[0].ChunkID != "c2" {
			t.Errorf("Expected highest-scored chunk first, got %s", passages[0].ChunkID)
		}
	})

	t.Run("At most topK results", func(t *testing.T) {
		index := newMockIndex(
			RetrievedPassage{ChunkID: "c1", DocumentID: "d1", Score: 0.9},
			RetrievedPassage{ChunkID: "c2", DocumentID: "d2", Score: 0.8},
			RetrievedPassage{ChunkID: "c3", DocumentID: "d3", Score: 0.7},
		)
		retriever, _ := NewRetriever(embedder, index)

		passages, err := retriever.Retrieve(ctx, "question", 2, nil)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(passages) != 2 {
			t.Fatalf("Expected 2 passages, got %d", len(passages))
		}
	})

	t.Run("Empty index yields empty result", func(t *testing.T) {
		retriever, _ := NewRetriever(embedder, newMockIndex())

		passages, err := retriever.Retrieve(ctx, "question with no answer", 5, nil)
		if err != nil {
			t.Fatalf("Expected no error for empty index, got: %v", err)
		}
		if len(passages) != 0 {
			t.Fatalf("Expected empty result, got %d passages", len(passages))
		}
	})

	t.Run("Empty query", func(t *testing.T) {
		retriever, _ := NewRetriever(embedder, newMockIndex())

		_, err := retriever.Retrieve(ctx, "   ", 5, nil)
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("Invalid topK", func(t *testing.T) {
		retriever, _ := NewRetriever(embedder, newMockIndex())

		_, err := retriever.Retrieve(ctx, "question", 0, nil)
		if !errors.Is(err, ErrInvalidTopK) {
			t.Errorf("Expected ErrInvalidTopK, got %v", err)
		}
	})

	t.Run("Score out of range rejected", func(t *testing.T) {
		index := newMockIndex(
			RetrievedPassage{ChunkID: "c1", DocumentID: "d1", Score: 1.7},
		)
		retriever, _ := NewRetriever(embedder, index)

		_, err := retriever.Retrieve(ctx, "question", 5, nil)
		if !errors.Is(err, ErrScoreOutOfRange) {
			t.Errorf("Expected ErrScoreOutOfRange, got %v", err)
		}
	})

	t.Run("Document filter forwarded", func(t *testing.T) {
		var gotOpts *SearchOptions
		index := newMockIndex()
		index.searchFunc = func(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error) {
			gotOpts = opts
			return nil, nil
		}
		retriever, _ := NewRetriever(embedder, index)

		_, err := retriever.Retrieve(ctx, "question", 5, &RetrieveOptions{DocumentIDs: []string{"d7"}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if gotOpts == nil || len(gotOpts.DocumentIDs) != 1 || gotOpts.DocumentIDs[0] != "d7" {
			t.Errorf("Expected document filter to be forwarded, got %+v", gotOpts)
		}
	})
}

func TestRetrievePerDocumentCap(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder()

	index := newMockIndex(
		RetrievedPassage{ChunkID: "a1", DocumentID: "docA", Score: 0.95},
		RetrievedPassage{ChunkID: "a2", DocumentID: "docA", Score: 0.93},
		RetrievedPassage{ChunkID: "a3", DocumentID: "docA", Score: 0.91},
		RetrievedPassage{ChunkID: "b1", DocumentID: "docB", Score: 0.85},
		RetrievedPassage{ChunkID: "c1", DocumentID: "docC", Score: 0.80},
	)
	retriever, err := NewRetriever(embedder, index)
	if err != nil {
		t.Fatalf("Failed to create retriever: %v", err)
	}

	t.Run("Cap limits one document's share", func(t *testing.T) {
		passages, err := retriever.Retrieve(ctx, "question", 4, &RetrieveOptions{MaxPerDocument: 2})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(passages) != 4 {
			t.Fatalf("Expected 4 passages, got %d", len(passages))
		}

		counts := map[string]int{}
		for _, p := range passages {
			counts[p.DocumentID]++
		}
		if counts["docA"] != 2 {
			t.Errorf("Expected docA capped at 2, got %d", counts["docA"])
		}
		// The freed slot goes to the next-best document.
		if counts["docB"] != 1 || counts["docC"] != 1 {
			t.Errorf("Expected docB and docC to fill remaining slots, got %v", counts)
		}
	})

	t.Run("Zero cap keeps everything", func(t *testing.T) {
		passages, err := retriever.Retrieve(ctx, "question", 3, &RetrieveOptions{MaxPerDocument: 0})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		counts := map[string]int{}
		for _, p := range passages {
			counts[p.DocumentID]++
		}
		if counts["docA"] != 3 {
			t.Errorf("Expected all docA passages without a cap, got %d", counts["docA"])
		}
	})
}

func TestRetrieveEmbeddingError(t *testing.T) {
	ctx := context.Background()

	embedder := newMockEmbedder()
	embedder.embedFunc = func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
		return nil, fmt.Errorf("%w: provider down", ErrEmbeddingFailed)
	}

	retriever, err := NewRetriever(embedder, newMockIndex())
	if err != nil {
		t.Fatalf("Failed to create retriever: %v", err)
	}

	_, err = retriever.Retrieve(ctx, "test query", 5, nil)
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Errorf("Expected ErrEmbeddingFailed in chain, got %v", err)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	ctx := context.Background()

	index := newMockIndex()
	index.searchFunc = func(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error) {
		return nil, fmt.Errorf("%w: connection refused", ErrSearchFailed)
	}

	retriever, err := NewRetriever(newMockEmbedder(), index)
	if err != nil {
		t.Fatalf("Failed to create retriever: %v", err)
	}

	_, err = retriever.Retrieve(ctx, "test query", 5, nil)
	if !errors.Is(err, ErrSearchFailed) {
		t.Errorf("Expected ErrSearchFailed in chain, got %v", err)
	}
}
