package storage

import (
	"context"

	"support-copilot/internal/domain"
)

// Transcript is the archived form of a user's conversation.
type Transcript struct {
	UserID   int64            `json:"user_id"`
	Messages []domain.Message `json:"messages"`
}

// Service uploads conversation transcripts to remote object storage.
type Service interface {
	UploadTranscript(ctx context.Context, transcript Transcript) (location string, err error)
}
