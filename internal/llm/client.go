// Package llm provides the chat-completions client used for persona
// replies and intent classification.
package llm

import (
	"context"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message is a chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface the rest of the agent programs against.
type Client interface {
	// Chat sends a conversation and returns the assistant's reply text.
	Chat(ctx context.Context, messages []Message) (string, error)
}
