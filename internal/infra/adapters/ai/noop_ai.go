package ai

import (
	"context"
	"strings"
	"time"

	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
)

var _ adapter.AIStreamAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter is the dev-mode stand-in. It echoes a canned reply word by
// word so the full streaming path can be exercised without an API key.
type NoopAIAdapter struct {
	reply string
	pace  time.Duration
}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{
		reply: "This is a development response, no upstream model was called.",
		pace:  50 * time.Millisecond,
	}
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content.DisplayText()))
	}
	return n, nil
}

func (a *NoopAIAdapter) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	for i, word := range strings.Fields(a.reply) {
		select {
		case <-time.After(a.pace):
		case <-ctx.Done():
			return ctx.Err()
		}
		if i > 0 {
			word = " " + word
		}
		fn(word)
	}
	return nil
}
