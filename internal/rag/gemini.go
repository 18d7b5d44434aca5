package rag

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// ErrMissingGeminiKey is returned when no Gemini credentials are available.
var ErrMissingGeminiKey = errors.New("GEMINI_API_KEY environment variable not set")

// GeminiEmbedder implements the Embedder interface using Google's Gemini API
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiEmbedder creates a new Gemini embedder instance
func NewGeminiEmbedder(ctx context.Context, model string, dimension int) (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingGeminiKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}, nil
}

// GetModel returns the embedding model identifier
func (e *GeminiEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the embedding vector dimension
func (e *GeminiEmbedder) GetDimension() int {
	return e.dimension
}

// Embed generates embeddings for the provided texts using the Gemini API
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dim := int32(e.dimension)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Embeddings))
	}

	records := make([]EmbeddingRecord, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		records[i] = EmbeddingRecord{
			Text:      texts[i],
			Embedding: emb.Values,
			Index:     i,
			Model:     e.model,
		}
	}

	return records, nil
}
