package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Embedder.Provider != "openai" {
		t.Errorf("Expected embedder provider openai, got %s", cfg.Embedder.Provider)
	}
	if cfg.Embedder.Model != "text-embedding-3-small" {
		t.Errorf("Expected embedder model text-embedding-3-small, got %s", cfg.Embedder.Model)
	}
	if cfg.Embedder.Dimension != 1536 {
		t.Errorf("Expected dimension 1536, got %d", cfg.Embedder.Dimension)
	}
	if cfg.Embedder.BatchSize != 32 {
		t.Errorf("Expected batch size 32, got %d", cfg.Embedder.BatchSize)
	}
	if cfg.Index.Provider != "milvus" {
		t.Errorf("Expected index provider milvus, got %s", cfg.Index.Provider)
	}
	if cfg.Index.Milvus.Address == "" {
		t.Error("Expected a default Milvus address")
	}
	if cfg.Index.Milvus.Collection == "" {
		t.Error("Expected a default Milvus collection")
	}
	if cfg.Generator.Provider != "gemini" {
		t.Errorf("Expected generator provider gemini, got %s", cfg.Generator.Provider)
	}
	if cfg.Generator.Model != "gemini-2.0-flash-exp" {
		t.Errorf("Expected generator model gemini-2.0-flash-exp, got %s", cfg.Generator.Model)
	}
	if cfg.Generator.MaxTokens != 1024 {
		t.Errorf("Expected max tokens 1024, got %d", cfg.Generator.MaxTokens)
	}
	if cfg.Query.TopK != 5 {
		t.Errorf("Expected top_k 5, got %d", cfg.Query.TopK)
	}
	if cfg.Query.HistoryTurns != 6 {
		t.Errorf("Expected history_turns 6, got %d", cfg.Query.HistoryTurns)
	}
	if cfg.Query.MaxPerDocument != 2 {
		t.Errorf("Expected max_per_document 2, got %d", cfg.Query.MaxPerDocument)
	}
	if cfg.Query.MaxPromptChars != 16000 {
		t.Errorf("Expected max_prompt_chars 16000, got %d", cfg.Query.MaxPromptChars)
	}
	if cfg.Chunker.MaxChunkSize != 1000 {
		t.Errorf("Expected max_chunk_size 1000, got %d", cfg.Chunker.MaxChunkSize)
	}
	if cfg.Chunker.Overlap != 200 {
		t.Errorf("Expected overlap 200, got %d", cfg.Chunker.Overlap)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed for a missing file: %v", err)
	}

	defaults := Default()
	if cfg.Query.TopK != defaults.Query.TopK {
		t.Errorf("Expected default top_k %d, got %d", defaults.Query.TopK, cfg.Query.TopK)
	}
	if cfg.Embedder.Model != defaults.Embedder.Model {
		t.Errorf("Expected default embedder model %s, got %s", defaults.Embedder.Model, cfg.Embedder.Model)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
embedder:
  provider: gemini
  model: gemini-embedding-001
  dimension: 768
index:
  milvus:
    collection: my_lore
query:
  top_k: 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Overridden fields
	if cfg.Embedder.Provider != "gemini" {
		t.Errorf("Expected embedder provider gemini, got %s", cfg.Embedder.Provider)
	}
	if cfg.Embedder.Model != "gemini-embedding-001" {
		t.Errorf("Expected embedder model gemini-embedding-001, got %s", cfg.Embedder.Model)
	}
	if cfg.Embedder.Dimension != 768 {
		t.Errorf("Expected dimension 768, got %d", cfg.Embedder.Dimension)
	}
	if cfg.Query.TopK != 8 {
		t.Errorf("Expected top_k 8, got %d", cfg.Query.TopK)
	}
	if cfg.Index.Milvus.Collection != "my_lore" {
		t.Errorf("Expected collection my_lore, got %s", cfg.Index.Milvus.Collection)
	}

	// Unset fields fall back to defaults
	if cfg.Embedder.BatchSize != 32 {
		t.Errorf("Expected default batch size 32, got %d", cfg.Embedder.BatchSize)
	}
	if cfg.Query.HistoryTurns != 6 {
		t.Errorf("Expected default history_turns 6, got %d", cfg.Query.HistoryTurns)
	}
	if cfg.Generator.Model != "gemini-2.0-flash-exp" {
		t.Errorf("Expected default generator model, got %s", cfg.Generator.Model)
	}
	if cfg.Chunker.MaxChunkSize != 1000 {
		t.Errorf("Expected default max_chunk_size 1000, got %d", cfg.Chunker.MaxChunkSize)
	}
}

func TestLoad_UnknownProviders(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown embedder",
			content: "embedder:\n  provider: cohere\n",
			want:    "cohere",
		},
		{
			name:    "unknown index",
			content: "index:\n  provider: pinecone\n",
			want:    "pinecone",
		},
		{
			name:    "unknown generator",
			content: "generator:\n  provider: mistral\n",
			want:    "mistral",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error for an unknown provider")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig in chain, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected the offending value %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_InvalidBounds(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "negative top_k",
			content: "query:\n  top_k: -1\n",
			want:    "top_k",
		},
		{
			name:    "overlap not smaller than chunk size",
			content: "chunker:\n  max_chunk_size: 100\n  overlap: 150\n",
			want:    "overlap",
		},
		{
			name:    "negative max_tokens",
			content: "generator:\n  max_tokens: -3\n",
			want:    "max_tokens",
		},
		{
			name:    "negative max_per_document",
			content: "query:\n  max_per_document: -2\n",
			want:    "max_per_document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig in chain, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error naming %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "embedder: [not a map"))
	if err == nil {
		t.Fatal("Expected a parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Embedder.Provider = "gemini"
	cfg.Embedder.Model = "gemini-embedding-001"
	cfg.Embedder.Dimension = 768
	cfg.Index.Milvus.Collection = "my_lore"
	cfg.Generator.Temperature = 0.4
	cfg.Query.TopK = 3

	engineCfg := cfg.EngineConfig()

	if engineCfg.TopK != 3 {
		t.Errorf("Expected TopK 3, got %d", engineCfg.TopK)
	}
	if engineCfg.EmbedderProvider != "gemini" {
		t.Errorf("Expected embedder provider gemini, got %s", engineCfg.EmbedderProvider)
	}
	if engineCfg.EmbedderModel != "gemini-embedding-001" {
		t.Errorf("Expected embedder model gemini-embedding-001, got %s", engineCfg.EmbedderModel)
	}
	if engineCfg.MilvusConfig.CollectionName != "my_lore" {
		t.Errorf("Expected collection my_lore, got %s", engineCfg.MilvusConfig.CollectionName)
	}
	if engineCfg.MilvusConfig.EmbeddingModel != "gemini-embedding-001" {
		t.Error("Milvus index should inherit the embedder model")
	}
	if engineCfg.MilvusConfig.Dimension != 768 {
		t.Error("Milvus index should inherit the embedder dimension")
	}
	if engineCfg.LLMConfig.Temperature != 0.4 {
		t.Errorf("Expected temperature 0.4, got %f", engineCfg.LLMConfig.Temperature)
	}

	// Index tuning not exposed in the file keeps its defaults
	if engineCfg.MilvusConfig.IndexType != "HNSW" {
		t.Errorf("Expected HNSW index type, got %s", engineCfg.MilvusConfig.IndexType)
	}
}
