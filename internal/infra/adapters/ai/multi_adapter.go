package ai

import (
	"context"
	"errors"
	"strings"

	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
)

var errNoProvider = errors.New("no ai provider configured")

var _ adapter.AIStreamAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes each call to a provider by model name. It knows a
// default provider only; each provider adapter carries its own default model.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.AIStreamAdapter
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.AIStreamAdapter,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) resolveProvider(modelName string) string {
	if p := m.modelToProvider[modelName]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiAIAdapter) pick(modelName string) adapter.AIStreamAdapter {
	prov := m.resolveProvider(modelName)
	if a := m.byProvider[prov]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.modelToProvider)+4)

	// models explicitly mapped in config first
	for modelName := range m.modelToProvider {
		if _, ok := seen[modelName]; !ok {
			seen[modelName] = struct{}{}
			out = append(out, modelName)
		}
	}

	// then the union of each provider's ListModels
	for _, a := range m.byProvider {
		list, _ := a.ListModels(ctx)
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	a := m.pick(modelName)
	if a == nil {
		return 0, nil
	}
	return a.CountTokens(ctx, modelName, messages)
}

func (m *MultiAIAdapter) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	a := m.pick(modelName)
	if a == nil {
		return errNoProvider
	}
	return a.ChatStream(ctx, modelName, messages, fn)
}
