package adapter

import (
	"context"
	"fmt"

	"webgpt-server/internal/domain/model"
)

// UpstreamError carries a provider's non-2xx response. The body is kept raw
// so callers can relay it verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("upstream http %d", e.StatusCode)
}

// StreamHandler receives each decoded text delta of a streaming completion.
// Deltas are forwarded verbatim in arrival order.
type StreamHandler func(delta string)

// AIStreamAdapter is the port for incremental LLM chat.
type AIStreamAdapter interface {
	ListModels(ctx context.Context) ([]string, error)

	// CountTokens estimates prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []model.Message) (int, error)

	// ChatStream sends the messages with incremental delivery requested and
	// invokes fn for every content delta until the stream ends. A non-2xx
	// response surfaces as an error whose message is the raw response body.
	ChatStream(ctx context.Context, modelName string, messages []model.Message, fn StreamHandler) error
}
