package answer

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on request content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the request.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastRequest stores the most recent request passed to Generate.
	LastRequest *Request
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, req *Request) (string, error) {
	m.LastRequest = req

	if m.Error != nil {
		return "", m.Error
	}

	if m.Response != "" {
		return m.Response, nil
	}

	// Generate a deterministic response based on request content
	return generateMockResponse(req), nil
}

// generateMockResponse creates a predictable answer from the request.
func generateMockResponse(req *Request) string {
	question := "unknown"
	sourceCount := 0

	if req != nil && len(req.Messages) > 0 {
		final := req.Messages[len(req.Messages)-1].Text

		if idx := strings.LastIndex(final, "Question: "); idx >= 0 {
			question = strings.TrimSpace(final[idx+len("Question: "):])
		}
		sourceCount = strings.Count(final, "[Source ")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("This answer addresses the question %q ", question))
	b.WriteString(fmt.Sprintf("using %d context passages. ", sourceCount))
	if sourceCount > 0 {
		b.WriteString("The most relevant passage is [Source 1]. ")
	} else {
		b.WriteString("The archive holds no relevant information for this question. ")
	}

	return b.String()
}
