package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkRecord is the unit stored in the vector index: one document chunk
// with its embedding and source metadata.
type ChunkRecord struct {
	// ChunkID is the stable identifier derived from document and position
	ChunkID string `json:"chunk_id"`

	// DocumentID identifies the source document
	DocumentID string `json:"document_id"`

	// Text is the chunk content
	Text string `json:"text"`

	// Embedding is the chunk's vector representation
	Embedding []float32 `json:"embedding"`

	// Model is the embedding model that produced the vector
	Model string `json:"model"`

	// SequenceIndex is the chunk's 0-based position within the document
	SequenceIndex int `json:"sequence_index"`

	// SourceURL is the document's source location, carried for citations
	SourceURL string `json:"source_url"`

	// SourceTitle is the document title, carried for citations
	SourceTitle string `json:"source_title"`
}

// RetrievedPassage is a search hit with its similarity score.
type RetrievedPassage struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Text        string  `json:"text"`
	Score       float32 `json:"score"` // cosine similarity, higher is closer
	SourceURL   string  `json:"source_url"`
	SourceTitle string  `json:"source_title"`
}

// SearchOptions provides filtering options for vector search
type SearchOptions struct {
	DocumentIDs []string `json:"document_ids,omitempty"` // Restrict search to these documents
}

// IndexStats describes the current state of a vector index.
type IndexStats struct {
	Collection string `json:"collection"`
	RowCount   int64  `json:"row_count"`
	Dimension  int    `json:"dimension"`
	Model      string `json:"model"`
}

// VectorIndex defines the interface for vector storage and similarity search.
// Implementations must reject records embedded with a model other than the
// one the index was configured for.
type VectorIndex interface {
	// Upsert writes chunk records, replacing records with the same chunk ID
	Upsert(ctx context.Context, records []ChunkRecord) error

	// Search performs top-K similarity search with optional filtering.
	// An empty index yields an empty result, not an error.
	Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error)

	// Exists checks which chunk IDs are present in the index.
	// Returns a map where keys are chunk IDs and values indicate existence.
	Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error)

	// Delete removes records by chunk IDs
	Delete(ctx context.Context, chunkIDs []string) error

	// Flush ensures all pending data is persisted
	Flush(ctx context.Context) error

	// GetStats returns collection statistics
	GetStats(ctx context.Context) (IndexStats, error)

	// GetEmbeddingModel returns the embedding model the index expects
	GetEmbeddingModel() string

	// Close releases resources and closes connections
	Close() error
}

// ChunkID derives the stable identifier for a chunk from its document and
// position. Re-indexing an unchanged document produces the same IDs, so
// upserts overwrite instead of duplicating.
func ChunkID(documentID string, sequenceIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, sequenceIndex)))
	return hex.EncodeToString(sum[:])
}
