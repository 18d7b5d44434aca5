package rag

import (
	"context"
	"fmt"

	"github.com/tarnished-labs/lorekeeper/internal/chunker"
	"github.com/tarnished-labs/lorekeeper/internal/corpus"
)

// IndexOptions provides configuration for corpus indexing
type IndexOptions struct {
	// BatchSize determines how many chunks to embed per provider call
	BatchSize int

	// ForceReindex deletes and re-inserts chunks even if they exist
	ForceReindex bool

	// SkipExisting checks whether a chunk is already indexed and skips it
	SkipExisting bool
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:    32, // Batch size for embedding API calls
		ForceReindex: false,
		SkipExisting: true,
	}
}

// IndexReport summarizes one indexing run. On a mid-run failure the report
// covers the work committed before the error; those batches stay committed.
type IndexReport struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"`
	Embedded  int `json:"embedded"`
	Batches   int `json:"batches"`
}

// IndexDocuments chunks the corpus and stores chunk embeddings in the
// vector index. The pipeline:
//  1. Splits every document into chunks with content-derived IDs
//  2. Optionally drops chunks that are already indexed
//  3. Embeds remaining chunks in batches and upserts them
//
// Chunk IDs depend only on document identity and position, so re-running
// over an unchanged corpus overwrites records instead of duplicating them.
func IndexDocuments(
	ctx context.Context,
	docs []corpus.Document,
	chunkCfg chunker.Config,
	embedder Embedder,
	index VectorIndex,
	opts IndexOptions,
) (*IndexReport, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	var records []ChunkRecord
	for _, doc := range docs {
		chunks, err := chunker.Split(doc, chunkCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk document %s: %w", doc.ID, err)
		}
		for _, ch := range chunks {
			records = append(records, ChunkRecord{
				ChunkID:       ChunkID(doc.ID, ch.SequenceIndex),
				DocumentID:    doc.ID,
				Text:          ch.Text,
				Model:         embedder.GetModel(),
				SequenceIndex: ch.SequenceIndex,
				SourceURL:     doc.URL,
				SourceTitle:   doc.Title,
			})
		}
	}

	report := &IndexReport{Documents: len(docs), Chunks: len(records)}
	if len(records) == 0 {
		return report, nil
	}

	if opts.ForceReindex {
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ChunkID
		}
		if err := index.Delete(ctx, ids); err != nil {
			return report, fmt.Errorf("failed to delete existing chunks: %w", err)
		}
	} else if opts.SkipExisting {
		var skipped int
		records, skipped = filterNewChunks(ctx, records, index)
		report.Skipped = skipped
	}

	for batchStart := 0; batchStart < len(records); batchStart += opts.BatchSize {
		batchEnd := batchStart + opts.BatchSize
		if batchEnd > len(records) {
			batchEnd = len(records)
		}

		batch := records[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, record := range batch {
			texts[i] = record.Text
		}

		embeddingRecords, err := embedder.Embed(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("failed to embed batch starting at %d: %w", batchStart, err)
		}
		if len(embeddingRecords) != len(batch) {
			return report, fmt.Errorf("%w: batch starting at %d returned %d embeddings for %d texts",
				ErrEmbeddingFailed, batchStart, len(embeddingRecords), len(batch))
		}

		for i := range batch {
			batch[i].Embedding = embeddingRecords[i].Embedding
		}

		if err := index.Upsert(ctx, batch); err != nil {
			return report, fmt.Errorf("failed to upsert batch starting at %d: %w", batchStart, err)
		}

		// Flush after each batch
		if err := index.Flush(ctx); err != nil {
			return report, fmt.Errorf("failed to flush batch starting at %d: %w", batchStart, err)
		}

		report.Embedded += len(batch)
		report.Batches++
	}

	return report, nil
}

// filterNewChunks removes records whose chunk IDs are already indexed.
func filterNewChunks(ctx context.Context, records []ChunkRecord, index VectorIndex) ([]ChunkRecord, int) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ChunkID
	}

	existing, err := index.Exists(ctx, ids)
	if err != nil {
		// Upserts are idempotent, so when the existence check fails we
		// simply index everything.
		return records, 0
	}

	kept := make([]ChunkRecord, 0, len(records))
	skipped := 0
	for _, r := range records {
		if existing[r.ChunkID] {
			skipped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, skipped
}
