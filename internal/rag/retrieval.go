package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors for retrieval operations
var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrInvalidTopK     = errors.New("topK must be positive")
	ErrScoreOutOfRange = errors.New("similarity score outside cosine range")
)

// scoreTolerance absorbs float drift in cosine scores reported by the index.
const scoreTolerance = 1e-3

// RetrieveOptions controls filtering and deduplication during retrieval.
type RetrieveOptions struct {
	// DocumentIDs restricts search to these documents
	DocumentIDs []string

	// MaxPerDocument caps how many passages a single document may occupy
	// in the result (0 = uncapped)
	MaxPerDocument int
}

// Retriever embeds a query and finds the closest chunks in the index.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
}

// NewRetriever creates a new Retriever instance. The embedder must produce
// vectors with the model the index was built for; a mismatch is a
// configuration error caught here, not at query time.
func NewRetriever(embedder Embedder, index VectorIndex) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index cannot be nil")
	}
	if embedder.GetModel() != index.GetEmbeddingModel() {
		return nil, fmt.Errorf("%w: embedder produces %q, index expects %q",
			ErrModelMismatch, embedder.GetModel(), index.GetEmbeddingModel())
	}

	return &Retriever{
		embedder: embedder,
		index:    index,
	}, nil
}

// Retrieve performs semantic search for a free-text query.
//
// Results come back ordered by descending score with at most topK entries.
// An empty result is not an error; it means the index holds nothing
// relevant (or nothing at all).
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, opts *RetrieveOptions) ([]RetrievedPassage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	records, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for query", ErrEmbeddingFailed)
	}

	maxPerDoc := 0
	var searchOpts *SearchOptions
	if opts != nil {
		maxPerDoc = opts.MaxPerDocument
		if len(opts.DocumentIDs) > 0 {
			searchOpts = &SearchOptions{DocumentIDs: opts.DocumentIDs}
		}
	}

	// With a per-document cap, fetch extra candidates so capped-away slots
	// can be filled by other documents.
	fetchK := topK
	if maxPerDoc > 0 {
		fetchK = topK * 3
	}

	passages, err := r.index.Search(ctx, records[0].Embedding, fetchK, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	for _, p := range passages {
		if p.Score < -1-scoreTolerance || p.Score > 1+scoreTolerance {
			return nil, fmt.Errorf("%w: %.4f for chunk %s", ErrScoreOutOfRange, p.Score, p.ChunkID)
		}
	}

	// Order by score no matter how the index returned its hits.
	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })

	if maxPerDoc > 0 {
		passages = capPerDocument(passages, maxPerDoc)
	}
	if len(passages) > topK {
		passages = passages[:topK]
	}

	return passages, nil
}

// capPerDocument drops passages once a document has filled its quota,
// preserving score order.
func capPerDocument(passages []RetrievedPassage, max int) []RetrievedPassage {
	counts := make(map[string]int, len(passages))
	kept := make([]RetrievedPassage, 0, len(passages))
	for _, p := range passages {
		if counts[p.DocumentID] >= max {
			continue
		}
		counts[p.DocumentID]++
		kept = append(kept, p)
	}
	return kept
}
