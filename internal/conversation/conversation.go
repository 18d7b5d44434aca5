// Package conversation tracks multi-turn dialogue state for the query engine.
// A conversation records user and assistant turns in order; the engine folds a
// window of recent turns into each prompt so follow-up questions resolve
// pronouns and references against earlier exchanges.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned when a query is already in flight for this conversation
var ErrBusy = errors.New("conversation is busy with another query")

// DefaultWindowTurns is the number of recent turns folded into a prompt
const DefaultWindowTurns = 6

// Role identifies the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in a conversation
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// NewUserTurn builds a user turn stamped with the current time
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, At: time.Now().UTC()}
}

// NewAssistantTurn builds an assistant turn stamped with the current time
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text, At: time.Now().UTC()}
}

// Conversation holds the ordered turns of one dialogue session.
// A conversation admits one in-flight query at a time: Begin marks the
// session busy and End releases it. Turns only ever grow; a failed query
// appends nothing, so the history never records half an exchange.
type Conversation struct {
	id string

	mu    sync.Mutex
	turns []Turn
	busy  bool
}

// New creates an empty conversation with a unique ID
func New() *Conversation {
	return &Conversation{
		id: uuid.New().String(),
	}
}

// Restore rebuilds a conversation from a saved ID and turns
func Restore(id string, turns []Turn) *Conversation {
	if id == "" {
		id = uuid.New().String()
	}
	c := &Conversation{id: id}
	c.turns = append(c.turns, turns...)
	return c
}

// GetID returns the conversation's unique identifier
func (c *Conversation) GetID() string {
	return c.id
}

// Begin marks the conversation busy for the duration of one query.
// Returns ErrBusy if another query already holds the session.
func (c *Conversation) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

// End releases the conversation after a query finishes
func (c *Conversation) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

// Append adds turns to the history in one step. The engine appends the
// user question and assistant answer together so a failure partway through
// a query cannot leave an unanswered question in the record.
func (c *Conversation) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
}

// Len returns the number of recorded turns
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Turns returns a copy of the full history, oldest first
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Window returns a copy of the most recent turns, oldest first.
// At most maxTurns are returned; a non-positive maxTurns yields nil.
func (c *Conversation) Window(maxTurns int) []Turn {
	if maxTurns <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := len(c.turns) - maxTurns
	if start < 0 {
		start = 0
	}

	out := make([]Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// Reset discards all recorded turns, keeping the conversation ID
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
