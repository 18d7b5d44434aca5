package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tarnished-labs/lorekeeper/internal/answer"
	"github.com/tarnished-labs/lorekeeper/internal/conversation"
	"github.com/tarnished-labs/lorekeeper/internal/rag"
)

// Common errors for query operations
var (
	ErrInvalidInput = errors.New("invalid query input")
	ErrUnavailable  = errors.New("backing service unavailable")
)

// Stage identifies where in the answer pipeline a query currently is,
// and on failure, where it stopped.
type Stage string

const (
	StageValidating Stage = "validating"
	StageEmbedding  Stage = "embedding"
	StageRetrieving Stage = "retrieving"
	StageAssembling Stage = "assembling"
	StageGenerating Stage = "generating"
	StageCompleted  Stage = "completed"
)

// QueryError reports a failed query together with the stage that failed.
// It wraps ErrInvalidInput or ErrUnavailable, so callers can distinguish
// bad input from provider outages with errors.Is.
type QueryError struct {
	Stage Stage
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed at %s stage: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Citation identifies a passage the answer drew on. Labels match the
// [Source N] markers in the prompt, so a label the model cites maps
// straight back to its source document.
type Citation struct {
	// Label is the bracketed marker used in the prompt ("Source 1", ...)
	Label string `json:"label"`

	// ChunkID is the indexed chunk the passage came from
	ChunkID string `json:"chunk_id"`

	// DocumentID identifies the source document
	DocumentID string `json:"document_id"`

	// Title is the source document title (document ID when untitled)
	Title string `json:"title"`

	// URL is the source document location, when known
	URL string `json:"url,omitempty"`

	// Score is the passage's cosine similarity to the question
	Score float32 `json:"score"`

	// Text is the passage content as it appeared in the prompt
	Text string `json:"text"`
}

// Result is a completed query: the generated answer plus the citations
// for every passage the prompt carried.
type Result struct {
	Question       string         `json:"question"`
	Answer         *answer.Answer `json:"answer"`
	Citations      []Citation     `json:"citations"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// Answer runs the full query pipeline: embed the question, retrieve
// context, assemble the prompt, and generate a grounded answer.
//
// A nil conversation runs the query stateless. With a conversation, the
// recent window is folded into the prompt and the question/answer pair is
// recorded only after the whole pipeline succeeds; a failed query leaves
// the conversation untouched. Every error is a *QueryError naming the
// failed stage.
func (e *Engine) Answer(ctx context.Context, question string, conv *conversation.Conversation) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &QueryError{Stage: StageValidating, Err: fmt.Errorf("%w: question cannot be empty", ErrInvalidInput)}
	}

	if conv != nil {
		if err := conv.Begin(); err != nil {
			return nil, &QueryError{Stage: StageValidating, Err: fmt.Errorf("%w: %w", ErrInvalidInput, err)}
		}
		defer conv.End()
	}

	// Snapshot the window before this exchange is recorded, so the prompt
	// carries only turns that preceded the question.
	var history []conversation.Turn
	if conv != nil {
		history = conv.Window(e.config.HistoryMaxTurns)
	}

	log.Printf("[Query Engine] Stage 1: Embedding question and retrieving top-%d passages", e.config.TopK)
	retrieveOpts := &rag.RetrieveOptions{MaxPerDocument: e.config.MaxPerDocument}
	passages, err := e.retriever.Retrieve(ctx, question, e.config.TopK, retrieveOpts)
	if err != nil {
		stage := StageRetrieving
		if errors.Is(err, rag.ErrEmbeddingFailed) {
			stage = StageEmbedding
		}
		return nil, &QueryError{Stage: stage, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	log.Printf("[Query Engine] Stage 2: Assembling prompt (%d passages, %d history turns)", len(passages), len(history))
	req, kept, err := answer.Assemble(question, passages, history, e.config.MaxPromptChars)
	if err != nil {
		return nil, &QueryError{Stage: StageAssembling, Err: fmt.Errorf("%w: %w", ErrInvalidInput, err)}
	}

	log.Printf("[Query Engine] Stage 3: Generating answer with LLM")
	ans, err := e.generator.Generate(ctx, req)
	if err != nil {
		return nil, &QueryError{Stage: StageGenerating, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	result := &Result{
		Question:  question,
		Answer:    ans,
		Citations: buildCitations(kept),
	}

	// Record the exchange as one atomic pair, and only after success.
	if conv != nil {
		conv.Append(
			conversation.NewUserTurn(question),
			conversation.NewAssistantTurn(ans.Text),
		)
		result.ConversationID = conv.GetID()
	}

	log.Printf("[Query Engine] Query completed with %d citations", len(result.Citations))
	return result, nil
}

// buildCitations labels the passages that made it into the prompt, in the
// same order the prompt presented them.
func buildCitations(passages []rag.RetrievedPassage) []Citation {
	citations := make([]Citation, 0, len(passages))
	for i, p := range passages {
		title := p.SourceTitle
		if title == "" {
			title = p.DocumentID
		}
		citations = append(citations, Citation{
			Label:      fmt.Sprintf("Source %d", i+1),
			ChunkID:    p.ChunkID,
			DocumentID: p.DocumentID,
			Title:      title,
			URL:        p.SourceURL,
			Score:      p.Score,
			Text:       p.Text,
		})
	}
	return citations
}
