package conversation

import (
	"encoding/json"
	"fmt"
	"os"
)

// transcript is the on-disk form of a conversation
type transcript struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
}

// SaveTranscript writes the conversation to path as indented JSON.
// The chat command uses this to carry a session across invocations.
func SaveTranscript(path string, c *Conversation) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(transcript{ID: c.GetID(), Turns: c.Turns()}); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	return nil
}

// LoadTranscript restores a conversation previously written by SaveTranscript
func LoadTranscript(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}

	return Restore(t.ID, t.Turns), nil
}
