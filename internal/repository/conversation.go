package repository

import (
	"context"

	"support-copilot/internal/domain"
)

// ConversationRepository persists the single conversation history per user.
// There is no partial-append primitive; callers read-modify-write the full
// sequence and Put replaces it atomically.
type ConversationRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, userID int64) (*domain.Conversation, error)
	Put(ctx context.Context, userID int64, messages []domain.Message) error
}
