// Package answer turns retrieved passages and conversation history into a
// grounded response. It defines a provider-agnostic LLM interface with
// concrete implementations for Gemini and OpenAI plus deterministic mocks for
// testing. The generator consumes pre-assembled requests and returns answers
// stamped with the producing model.
package answer

import (
	"context"
	"errors"

	"github.com/tarnished-labs/lorekeeper/internal/conversation"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Message is one conversational turn handed to the model
type Message struct {
	Role conversation.Role
	Text string
}

// Request is a fully assembled generation request. The system instruction
// travels separately from the messages because providers accept it through
// dedicated fields rather than as an ordinary turn.
type Request struct {
	System   string
	Messages []Message
}

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from an assembled request using the configured
	// model. Returns the generated text or an error if generation fails.
	Generate(ctx context.Context, req *Request) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gemini-2.0-flash-exp", "gpt-4o")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}

// DefaultLLMConfig returns sensible defaults for answer generation.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gemini-2.0-flash-exp",
		Temperature: 0.1, // keeps answers anchored to the retrieved passages
		MaxTokens:   1024,
	}
}
