package answer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/tarnished-labs/lorekeeper/internal/conversation"
)

// GeminiLLM implements the LLM interface using Google's Gemini API.
type GeminiLLM struct {
	client *genai.Client
	config LLMConfig
}

// NewGeminiLLM creates a Gemini-backed LLM implementation.
// Returns an error if the API key is missing or invalid.
func NewGeminiLLM(ctx context.Context, config LLMConfig) (*GeminiLLM, error) {
	// Use config API key or fall back to environment variable
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set GEMINI_API_KEY or provide in config)", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiLLM{
		client: client,
		config: config,
	}, nil
}

// Generate sends the assembled request to Gemini and returns the generated text.
func (g *GeminiLLM) Generate(ctx context.Context, req *Request) (string, error) {
	if req == nil || len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: request must carry at least one message", ErrInvalidConfig)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.RoleUser
		if msg.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, genai.Role(role)))
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, "")
	}
	if g.config.Temperature > 0 {
		config.Temperature = genai.Ptr(g.config.Temperature)
	}
	if g.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.config.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: response carried no text", ErrLLMFailed)
	}

	return strings.Join(parts, ""), nil
}
