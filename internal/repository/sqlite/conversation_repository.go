package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"support-copilot/internal/domain"
	"support-copilot/internal/repository"
)

// The UNIQUE constraint on user_id enforces the one-conversation-per-user
// policy; Put relies on it for the upsert.
const createConversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
	messages TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createConversationsTable); err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, userID int64) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, messages, created_at, updated_at
FROM conversations
WHERE user_id = ?`,
		userID,
	)

	var (
		conv domain.Conversation
		raw  string
	)
	if err := row.Scan(&conv.ID, &conv.UserID, &raw, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decode conversation messages: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) Put(ctx context.Context, userID int64, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode conversation messages: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO conversations (user_id, messages, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	messages = excluded.messages,
	updated_at = excluded.updated_at`,
		userID,
		string(raw),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}
