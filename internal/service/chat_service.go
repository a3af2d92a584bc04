package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"support-copilot/internal/domain"
	"support-copilot/internal/llm"
	"support-copilot/internal/repository"
)

// ErrEmptyMessage is returned for blank chat messages; the inference gateway
// is never invoked for them.
var ErrEmptyMessage = errors.New("message cannot be empty")

// ChatService runs one chat turn at a time per user. All state round-trips
// through the conversation repository; nothing is held in memory across
// requests except the per-user locks themselves.
type ChatService interface {
	Chat(ctx context.Context, userID int64, message string) (string, error)
	History(ctx context.Context, userID int64) ([]domain.Message, error)
}

type chatService struct {
	conversations repository.ConversationRepository
	gateway       llm.Client

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewChatService(conversations repository.ConversationRepository, gateway llm.Client) ChatService {
	return &chatService{
		conversations: conversations,
		gateway:       gateway,
		locks:         make(map[int64]*sync.Mutex),
	}
}

// Chat appends the user message to the stored history, asks the gateway for a
// reply, appends it, and persists the updated sequence. The per-user lock
// serializes concurrent turns so every assistant entry stays paired with the
// user entry that produced it.
func (s *chatService) Chat(ctx context.Context, userID int64, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return "", err
	}

	history = append(history, domain.Message{Role: domain.RoleUser, Content: message})

	reply, err := s.gateway.Complete(ctx, history)
	if err != nil {
		return "", err
	}

	history = append(history, domain.Message{Role: domain.RoleAssistant, Content: reply})

	if err := s.conversations.Put(ctx, userID, history); err != nil {
		return "", fmt.Errorf("persist conversation: %w", err)
	}

	return reply, nil
}

// History returns the stored message sequence, empty if the user has not
// chatted yet.
func (s *chatService) History(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.loadHistory(ctx, userID)
}

func (s *chatService) loadHistory(ctx context.Context, userID int64) ([]domain.Message, error) {
	conv, err := s.conversations.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.Message{}, nil
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv.Messages, nil
}

func (s *chatService) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
