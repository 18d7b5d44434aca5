package answer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tarnished-labs/lorekeeper/internal/conversation"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

var (
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// DefaultMaxPromptChars bounds the assembled prompt size. History and
// low-relevance passages are dropped to fit; the question never is.
const DefaultMaxPromptChars = 16000

const systemInstruction = `You are an archivist answering questions about the lore recorded in a wiki archive. Use the provided context to answer the user's question accurately and helpfully.

Instructions:
- Answer based primarily on the provided context
- Be accurate and detailed but concise
- Cite sources by their bracketed label, for example [Source 2]
- If the context doesn't contain enough information, say so clearly
- Include relevant quotes from the context when helpful
- Maintain an engaging, helpful tone`

const emptyContextNotice = "No passages in the archive matched this question. Tell the user the archive holds no relevant information; do not answer from outside knowledge."

// Assemble builds a generation request from the question, the retrieved
// passages, and the recent conversation history. Passages are labeled
// [Source 1], [Source 2], ... in descending relevance order so answers can
// cite them.
//
// When the assembled prompt would exceed maxChars, the oldest history turns
// are dropped first, then the lowest-relevance passages. Returns the request
// together with the passages that remained in the prompt, in label order.
func Assemble(question string, passages []rag.RetrievedPassage, history []conversation.Turn, maxChars int) (*Request, []rag.RetrievedPassage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil, ErrEmptyQuestion
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}

	// Sort passages by relevance score (highest first), even if already sorted.
	sorted := make([]rag.RetrievedPassage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	turns := make([]conversation.Turn, len(history))
	copy(turns, history)

	req := buildRequest(question, sorted, turns)
	for promptSize(req) > maxChars {
		if len(turns) > 0 {
			turns = turns[1:]
		} else if len(sorted) > 0 {
			sorted = sorted[:len(sorted)-1]
		} else {
			// Only the instruction and the question remain; nothing left to drop.
			break
		}
		req = buildRequest(question, sorted, turns)
	}

	return req, sorted, nil
}

func buildRequest(question string, passages []rag.RetrievedPassage, turns []conversation.Turn) *Request {
	messages := make([]Message, 0, len(turns)+1)
	for _, turn := range turns {
		messages = append(messages, Message{Role: turn.Role, Text: turn.Text})
	}
	messages = append(messages, Message{
		Role: conversation.RoleUser,
		Text: fmt.Sprintf("Context from the archive:\n\n%s\n\nQuestion: %s", formatContext(passages), question),
	})

	return &Request{
		System:   systemInstruction,
		Messages: messages,
	}
}

// formatContext renders passages as labeled context blocks
func formatContext(passages []rag.RetrievedPassage) string {
	if len(passages) == 0 {
		return emptyContextNotice
	}

	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		title := p.SourceTitle
		if title == "" {
			title = p.DocumentID
		}

		var b strings.Builder
		b.WriteString(fmt.Sprintf("[Source %d] %s (relevance: %.2f)\n", i+1, title, p.Score))
		if p.SourceURL != "" {
			b.WriteString(p.SourceURL + "\n")
		}
		b.WriteString(p.Text)
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

// promptSize counts the characters the request contributes to the context window
func promptSize(req *Request) int {
	size := len(req.System)
	for _, msg := range req.Messages {
		size += len(msg.Text)
	}
	return size
}
