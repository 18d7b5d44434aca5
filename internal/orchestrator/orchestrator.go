// Package orchestrator wires the corpus, retrieval, and generation layers
// into a query engine. The engine owns provider construction, runs the staged
// answer flow, and reports which stage failed when a provider is down.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/tarnished-labs/lorekeeper/internal/answer"
	"github.com/tarnished-labs/lorekeeper/internal/chunker"
	"github.com/tarnished-labs/lorekeeper/internal/conversation"
	"github.com/tarnished-labs/lorekeeper/internal/corpus"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

func init() {
	// Load .env
	_ = godotenv.Load("../../.env")
}

// Config holds configuration for the query engine.
type Config struct {
	// TopK is the number of passages to retrieve as context
	TopK int

	// HistoryMaxTurns is the number of recent conversation turns folded into prompts
	HistoryMaxTurns int

	// MaxPerDocument caps how many passages a single document may contribute
	MaxPerDocument int

	// MaxPromptChars bounds the assembled prompt size
	MaxPromptChars int

	// EmbedderProvider selects the embedding backend ("openai" or "gemini")
	EmbedderProvider string

	// EmbedderModel is the model to use for embeddings (e.g., "text-embedding-3-small")
	EmbedderModel string

	// EmbedderDimension is the vector dimension for embeddings
	EmbedderDimension int

	// IndexProvider selects the vector index backend ("milvus" or "memory")
	IndexProvider string

	// GeneratorProvider selects the LLM backend ("gemini" or "openai")
	GeneratorProvider string

	// Chunker controls how documents are split during indexing
	Chunker chunker.Config

	// LLMConfig holds the LLM configuration for answer generation
	LLMConfig answer.LLMConfig

	// MilvusConfig holds the Milvus vector index configuration
	MilvusConfig rag.MilvusConfig
}

// DefaultConfig returns sensible defaults for the query engine.
func DefaultConfig() Config {
	return Config{
		TopK:              5,
		HistoryMaxTurns:   conversation.DefaultWindowTurns,
		MaxPerDocument:    2,
		MaxPromptChars:    answer.DefaultMaxPromptChars,
		EmbedderProvider:  "openai",
		EmbedderModel:     "text-embedding-3-small",
		EmbedderDimension: 1536,
		IndexProvider:     "milvus",
		GeneratorProvider: "gemini",
		Chunker:           chunker.DefaultConfig(),
		LLMConfig:         answer.DefaultLLMConfig(),
		MilvusConfig:      rag.DefaultMilvusConfig(),
	}
}

// Engine orchestrates end-to-end retrieval-augmented question answering.
type Engine struct {
	config    Config
	embedder  rag.Embedder
	index     rag.VectorIndex
	retriever *rag.Retriever
	generator *answer.Generator
}

// NewEmbedder builds the embedding provider named by the configuration.
func NewEmbedder(ctx context.Context, config Config) (rag.Embedder, error) {
	switch config.EmbedderProvider {
	case "", "openai":
		return rag.NewOpenAIEmbedder(config.EmbedderModel, config.EmbedderDimension)
	case "gemini":
		return rag.NewGeminiEmbedder(ctx, config.EmbedderModel, config.EmbedderDimension)
	default:
		return nil, fmt.Errorf("unknown embedder provider: %q", config.EmbedderProvider)
	}
}

// NewVectorIndex builds the vector index named by the configuration.
// Milvus settings missing a model or dimension inherit the embedder's,
// so the index always agrees with what produced its vectors.
func NewVectorIndex(ctx context.Context, config Config) (rag.VectorIndex, error) {
	switch config.IndexProvider {
	case "", "milvus":
		milvusConfig := config.MilvusConfig
		if milvusConfig.EmbeddingModel == "" {
			milvusConfig.EmbeddingModel = config.EmbedderModel
		}
		if milvusConfig.Dimension == 0 {
			milvusConfig.Dimension = config.EmbedderDimension
		}
		return rag.NewMilvusIndex(ctx, milvusConfig)
	case "memory":
		return rag.NewMemoryIndex(config.EmbedderModel, config.EmbedderDimension)
	default:
		return nil, fmt.Errorf("unknown index provider: %q", config.IndexProvider)
	}
}

// NewLLM builds the generation backend named by the configuration.
func NewLLM(ctx context.Context, config Config) (answer.LLM, error) {
	switch config.GeneratorProvider {
	case "", "gemini":
		return answer.NewGeminiLLM(ctx, config.LLMConfig)
	case "openai":
		return answer.NewOpenAILLM(config.LLMConfig)
	default:
		return nil, fmt.Errorf("unknown generator provider: %q", config.GeneratorProvider)
	}
}

// New creates a query engine with providers built from the configuration.
func New(ctx context.Context, config Config) (*Engine, error) {
	embedder, err := NewEmbedder(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	index, err := NewVectorIndex(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	llm, err := NewLLM(ctx, config)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	return NewWithComponents(config, embedder, index, llm)
}

// NewWithComponents creates a query engine from pre-built components.
// The embedder and index must agree on the embedding model; a mismatch is a
// configuration error reported here rather than at query time.
func NewWithComponents(config Config, embedder rag.Embedder, index rag.VectorIndex, llm answer.LLM) (*Engine, error) {
	if config.TopK <= 0 {
		config.TopK = 5
	}

	retriever, err := rag.NewRetriever(embedder, index)
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	generator := answer.NewGenerator(llm, config.LLMConfig)

	return &Engine{
		config:    config,
		embedder:  embedder,
		index:     index,
		retriever: retriever,
		generator: generator,
	}, nil
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	if e.index != nil {
		return e.index.Close()
	}
	return nil
}

// IndexCorpus loads a scraped corpus file and indexes its documents.
// Already-indexed chunks are skipped unless opts force a reindex.
func (e *Engine) IndexCorpus(ctx context.Context, path string, opts rag.IndexOptions) (*rag.IndexReport, error) {
	docs, err := corpus.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	return e.IndexDocuments(ctx, docs, opts)
}

// IndexDocuments chunks, embeds, and indexes the given documents.
func (e *Engine) IndexDocuments(ctx context.Context, docs []corpus.Document, opts rag.IndexOptions) (*rag.IndexReport, error) {
	log.Printf("[Query Engine] Indexing %d documents", len(docs))

	report, err := rag.IndexDocuments(ctx, docs, e.config.Chunker, e.embedder, e.index, opts)
	if err != nil {
		return report, fmt.Errorf("failed to index documents: %w", err)
	}

	log.Printf("[Query Engine] Indexed %d chunks across %d documents (%d skipped)",
		report.Embedded, report.Documents, report.Skipped)
	return report, nil
}

// GetStats returns statistics about the underlying vector index.
func (e *Engine) GetStats(ctx context.Context) (rag.IndexStats, error) {
	return e.index.GetStats(ctx)
}
