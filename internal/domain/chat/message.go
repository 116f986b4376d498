package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation transcript.
// Transcripts live in process memory only; nothing here is persisted.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates an immutable transcript entry
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}
