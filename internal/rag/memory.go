package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process VectorIndex backed by a map with brute-force
// cosine scanning. It serves tests and small corpora; it is not a Milvus
// replacement.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]ChunkRecord
	model   string
	dim     int
}

// NewMemoryIndex creates an empty in-memory index for the given model.
func NewMemoryIndex(model string, dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model must be configured", ErrModelMismatch)
	}

	return &MemoryIndex{
		records: make(map[string]ChunkRecord),
		model:   model,
		dim:     dimension,
	}, nil
}

// Upsert writes chunk records, replacing records with the same chunk ID
func (m *MemoryIndex) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}

	for _, record := range records {
		if len(record.Embedding) != m.dim {
			return fmt.Errorf("%w: expected %d, got %d for chunk %s",
				ErrInvalidDimension, m.dim, len(record.Embedding), record.ChunkID)
		}
		if record.Model != m.model {
			return fmt.Errorf("%w: index expects %q, record %s carries %q",
				ErrModelMismatch, m.model, record.ChunkID, record.Model)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		m.records[record.ChunkID] = record
	}
	return nil
}

// Search performs a brute-force cosine scan over all records.
// Ties are broken by chunk ID so results are deterministic.
func (m *MemoryIndex) Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error) {
	if len(queryVector) != m.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.dim, len(queryVector))
	}

	var allowed map[string]bool
	if opts != nil && len(opts.DocumentIDs) > 0 {
		allowed = make(map[string]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			allowed[id] = true
		}
	}

	m.mu.RLock()
	passages := make([]RetrievedPassage, 0, len(m.records))
	for _, record := range m.records {
		if allowed != nil && !allowed[record.DocumentID] {
			continue
		}
		passages = append(passages, RetrievedPassage{
			ChunkID:     record.ChunkID,
			DocumentID:  record.DocumentID,
			Text:        record.Text,
			Score:       cosineSimilarity(queryVector, record.Embedding),
			SourceURL:   record.SourceURL,
			SourceTitle: record.SourceTitle,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].ChunkID < passages[j].ChunkID
	})

	if len(passages) > topK {
		passages = passages[:topK]
	}
	return passages, nil
}

// Exists checks which chunk IDs are present in the index
func (m *MemoryIndex) Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existenceMap := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		_, ok := m.records[id]
		existenceMap[id] = ok
	}
	return existenceMap, nil
}

// Delete removes records by chunk IDs
func (m *MemoryIndex) Delete(ctx context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range chunkIDs {
		delete(m.records, id)
	}
	return nil
}

// Flush is a no-op; records live in memory only
func (m *MemoryIndex) Flush(ctx context.Context) error {
	return nil
}

// GetStats returns collection statistics
func (m *MemoryIndex) GetStats(ctx context.Context) (IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return IndexStats{
		Collection: "memory",
		RowCount:   int64(len(m.records)),
		Dimension:  m.dim,
		Model:      m.model,
	}, nil
}

// GetEmbeddingModel returns the embedding model the index expects
func (m *MemoryIndex) GetEmbeddingModel() string {
	return m.model
}

// Close releases resources; nothing to release for a memory index
func (m *MemoryIndex) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
