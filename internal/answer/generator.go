package answer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Answer is a generated response grounded in retrieved passages.
type Answer struct {
	// Text is the generated answer content
	Text string `json:"text"`

	// GeneratedAt is when this answer was created
	GeneratedAt time.Time `json:"generated_at"`

	// Model is the LLM model used to generate this answer
	Model string `json:"model"`
}

// Generator produces answers from assembled requests using an LLM.
// It invokes the LLM on an already-assembled request.
type Generator struct {
	llm    LLM
	config LLMConfig
}

// NewGenerator creates an answer generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Generate creates an answer by invoking the LLM with an already-assembled
// request. It must not perform retrieval or prompt construction.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Answer, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if req == nil || len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: request is required", ErrGenerationFailed)
	}

	text, err := g.llm.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
	}

	return &Answer{
		Text:        text,
		GeneratedAt: time.Now(),
		Model:       g.config.Model,
	}, nil
}
