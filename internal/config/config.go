// Package config loads engine configuration from a YAML file. A missing
// file yields the built-in defaults, so the CLI runs without any setup.
// API keys never live in the file; providers read them from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tarnished-labs/lorekeeper/internal/orchestrator"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

// ErrInvalidConfig indicates a configuration value outside the accepted
// bounds or an unknown provider name.
var ErrInvalidConfig = errors.New("invalid configuration")

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// MilvusConfig holds connection details for a Milvus vector index.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Provider string       `yaml:"provider"`
	Milvus   MilvusConfig `yaml:"milvus"`
}

// GeneratorConfig configures the answer-generating LLM.
type GeneratorConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// QueryConfig bounds the query pipeline.
type QueryConfig struct {
	TopK           int `yaml:"top_k"`
	HistoryTurns   int `yaml:"history_turns"`
	MaxPerDocument int `yaml:"max_per_document"`
	MaxPromptChars int `yaml:"max_prompt_chars"`
}

// ChunkerConfig controls document splitting during indexing.
type ChunkerConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// Config is the root configuration structure.
type Config struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Index     IndexConfig     `yaml:"index"`
	Generator GeneratorConfig `yaml:"generator"`
	Query     QueryConfig     `yaml:"query"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
}

// Default returns the built-in configuration, derived from the engine
// defaults so the two never drift apart.
func Default() *Config {
	engineCfg := orchestrator.DefaultConfig()
	return &Config{
		Embedder: EmbedderConfig{
			Provider:  engineCfg.EmbedderProvider,
			Model:     engineCfg.EmbedderModel,
			Dimension: engineCfg.EmbedderDimension,
			BatchSize: rag.DefaultIndexOptions().BatchSize,
		},
		Index: IndexConfig{
			Provider: engineCfg.IndexProvider,
			Milvus: MilvusConfig{
				Address:    engineCfg.MilvusConfig.Address,
				Collection: engineCfg.MilvusConfig.CollectionName,
			},
		},
		Generator: GeneratorConfig{
			Provider:    engineCfg.GeneratorProvider,
			Model:       engineCfg.LLMConfig.Model,
			Temperature: engineCfg.LLMConfig.Temperature,
			MaxTokens:   engineCfg.LLMConfig.MaxTokens,
		},
		Query: QueryConfig{
			TopK:           engineCfg.TopK,
			HistoryTurns:   engineCfg.HistoryMaxTurns,
			MaxPerDocument: engineCfg.MaxPerDocument,
			MaxPromptChars: engineCfg.MaxPromptChars,
		},
		Chunker: ChunkerConfig{
			MaxChunkSize: engineCfg.Chunker.MaxChunkSize,
			Overlap:      engineCfg.Chunker.Overlap,
		},
	}
}

// Load reads configuration from the given path. A missing file returns
// the defaults; a present file is validated so bad values fail here, not
// when the first provider client is constructed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset fields so partial files work.
func applyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = defaults.Embedder.Provider
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = defaults.Embedder.Model
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = defaults.Embedder.Dimension
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = defaults.Embedder.BatchSize
	}

	if cfg.Index.Provider == "" {
		cfg.Index.Provider = defaults.Index.Provider
	}
	if cfg.Index.Milvus.Address == "" {
		cfg.Index.Milvus.Address = defaults.Index.Milvus.Address
	}
	if cfg.Index.Milvus.Collection == "" {
		cfg.Index.Milvus.Collection = defaults.Index.Milvus.Collection
	}

	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = defaults.Generator.Provider
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = defaults.Generator.Model
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = defaults.Generator.Temperature
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = defaults.Generator.MaxTokens
	}

	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = defaults.Query.TopK
	}
	if cfg.Query.HistoryTurns == 0 {
		cfg.Query.HistoryTurns = defaults.Query.HistoryTurns
	}
	if cfg.Query.MaxPerDocument == 0 {
		cfg.Query.MaxPerDocument = defaults.Query.MaxPerDocument
	}
	if cfg.Query.MaxPromptChars == 0 {
		cfg.Query.MaxPromptChars = defaults.Query.MaxPromptChars
	}

	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = defaults.Chunker.MaxChunkSize
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = defaults.Chunker.Overlap
	}
}

// Validate checks provider names and numeric bounds, mirroring the checks
// the components themselves enforce.
func (c *Config) Validate() error {
	switch c.Embedder.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, c.Embedder.Provider)
	}

	switch c.Index.Provider {
	case "milvus", "memory":
	default:
		return fmt.Errorf("%w: unknown index provider %q", ErrInvalidConfig, c.Index.Provider)
	}

	switch c.Generator.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: unknown generator provider %q", ErrInvalidConfig, c.Generator.Provider)
	}

	if c.Embedder.Dimension < 1 {
		return fmt.Errorf("%w: embedder dimension must be at least 1, got %d", ErrInvalidConfig, c.Embedder.Dimension)
	}
	if c.Embedder.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrInvalidConfig, c.Embedder.BatchSize)
	}
	if c.Generator.MaxTokens < 1 {
		return fmt.Errorf("%w: max_tokens must be at least 1, got %d", ErrInvalidConfig, c.Generator.MaxTokens)
	}
	if c.Query.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidConfig, c.Query.TopK)
	}
	if c.Query.HistoryTurns < 0 {
		return fmt.Errorf("%w: history_turns must not be negative, got %d", ErrInvalidConfig, c.Query.HistoryTurns)
	}
	if c.Query.MaxPerDocument < 0 {
		return fmt.Errorf("%w: max_per_document must not be negative, got %d", ErrInvalidConfig, c.Query.MaxPerDocument)
	}
	if c.Query.MaxPromptChars < 1 {
		return fmt.Errorf("%w: max_prompt_chars must be at least 1, got %d", ErrInvalidConfig, c.Query.MaxPromptChars)
	}
	if c.Chunker.MaxChunkSize < 1 {
		return fmt.Errorf("%w: max_chunk_size must be at least 1, got %d", ErrInvalidConfig, c.Chunker.MaxChunkSize)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.MaxChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than max_chunk_size %d",
			ErrInvalidConfig, c.Chunker.Overlap, c.Chunker.MaxChunkSize)
	}

	return nil
}

// EngineConfig maps the file configuration onto the query engine's
// configuration. The Milvus index inherits the embedder's model and
// dimension, so the two layers cannot disagree.
func (c *Config) EngineConfig() orchestrator.Config {
	engineCfg := orchestrator.DefaultConfig()

	engineCfg.TopK = c.Query.TopK
	engineCfg.HistoryMaxTurns = c.Query.HistoryTurns
	engineCfg.MaxPerDocument = c.Query.MaxPerDocument
	engineCfg.MaxPromptChars = c.Query.MaxPromptChars

	engineCfg.EmbedderProvider = c.Embedder.Provider
	engineCfg.EmbedderModel = c.Embedder.Model
	engineCfg.EmbedderDimension = c.Embedder.Dimension

	engineCfg.IndexProvider = c.Index.Provider
	engineCfg.MilvusConfig.Address = c.Index.Milvus.Address
	engineCfg.MilvusConfig.CollectionName = c.Index.Milvus.Collection
	engineCfg.MilvusConfig.EmbeddingModel = c.Embedder.Model
	engineCfg.MilvusConfig.Dimension = c.Embedder.Dimension

	engineCfg.GeneratorProvider = c.Generator.Provider
	engineCfg.LLMConfig.Model = c.Generator.Model
	engineCfg.LLMConfig.Temperature = c.Generator.Temperature
	engineCfg.LLMConfig.MaxTokens = c.Generator.MaxTokens

	engineCfg.Chunker.MaxChunkSize = c.Chunker.MaxChunkSize
	engineCfg.Chunker.Overlap = c.Chunker.Overlap

	return engineCfg
}
