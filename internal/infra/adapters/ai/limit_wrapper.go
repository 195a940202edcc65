package ai

import (
	"context"

	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIStreamAdapter = (*limitedAI)(nil)

// limitedAI caps concurrent upstream streams with a semaphore. The slot is
// held for the whole stream, not just the request handshake.
type limitedAI struct {
	inner adapter.AIStreamAdapter
	sem   chan struct{}
}

func NewLimitedAI(inner adapter.AIStreamAdapter, maxConcurrent int) adapter.AIStreamAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) ListModels(ctx context.Context) ([]string, error) {
	return l.inner.ListModels(ctx)
}

func (l *limitedAI) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	return l.inner.CountTokens(ctx, modelName, messages)
}

func (l *limitedAI) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.ChatStream(ctx, modelName, messages, fn)
}
