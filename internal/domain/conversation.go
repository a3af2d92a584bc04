package domain

import "time"

// Message roles as stored and as sent to the inference provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation holds the ordered message history for one user. A user has at
// most one conversation; each chat turn appends a user message followed by the
// assistant reply.
type Conversation struct {
	ID        int64
	UserID    int64
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}
