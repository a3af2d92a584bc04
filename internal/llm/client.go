package llm

import (
	"context"
	"errors"

	"support-copilot/internal/domain"
)

// ErrGateway wraps any inference-provider failure: timeout, transport error,
// non-2xx response, or an empty completion.
var ErrGateway = errors.New("inference gateway error")

// Client forwards a message sequence to an inference provider and returns the
// generated continuation.
type Client interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}
