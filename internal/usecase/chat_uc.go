// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
	"webgpt-server/internal/domain/ports/repository"
	"webgpt-server/internal/infra/logging"
	"webgpt-server/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// turnState tracks where a session's in-flight turn is in its lifecycle.
// A session accepts a new turn only while idle; concurrent submissions are
// rejected, not queued.
type turnState int

const (
	turnIdle turnState = iota
	turnSending
	turnStreaming
)

// Turn is one user submission: the typed text plus any attached images as
// data URIs.
type Turn struct {
	Text   string
	Images []string
	Model  string
}

type ChatUseCase interface {
	// StreamTurn runs the full chat pipeline for one turn and forwards
	// assistant deltas to sink as they arrive. On failure a synthetic
	// error message is persisted to the session and the error returned.
	StreamTurn(ctx context.Context, owner, sessionID string, turn Turn, sink adapter.StreamHandler) (*model.ChatSession, error)
	// Relay streams a completion for a client-held transcript without
	// touching stored sessions. Synthetic error messages are filtered from
	// the outgoing context the same way StreamTurn filters them.
	Relay(ctx context.Context, modelName string, messages []model.Message, sink adapter.StreamHandler) error
	ListModels(ctx context.Context) ([]string, error)
}

type chatUC struct {
	store         repository.SessionStore
	ai            adapter.AIStreamAdapter
	systemPrompt  string
	defaultModel  string
	flushInterval time.Duration
	log           *zerolog.Logger

	mu     sync.Mutex
	states map[string]turnState // owner+"/"+sessionID
}

func NewChatUseCase(store repository.SessionStore, ai adapter.AIStreamAdapter, systemPrompt, defaultModel string, flushInterval time.Duration, logger *zerolog.Logger) *chatUC {
	return &chatUC{
		store:         store,
		ai:            ai,
		systemPrompt:  systemPrompt,
		defaultModel:  defaultModel,
		flushInterval: flushInterval,
		log:           logger,
		states:        map[string]turnState{},
	}
}

func (c *chatUC) ListModels(ctx context.Context) ([]string, error) {
	return c.ai.ListModels(ctx)
}

func (c *chatUC) StreamTurn(ctx context.Context, owner, sessionID string, turn Turn, sink adapter.StreamHandler) (*model.ChatSession, error) {
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.StreamTurn")()

	turn.Text = strings.TrimSpace(turn.Text)
	if turn.Text == "" && len(turn.Images) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	key := owner + "/" + sessionID
	if !c.acquire(key) {
		return nil, domain.ErrTurnInFlight
	}
	defer c.release(key)

	sess, err := c.store.GetOne(ctx, owner, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		sess = model.NewChatSession(sessionID)
	} else if err != nil {
		return nil, err
	}

	sess.Append(model.Message{Role: model.RoleUser, Content: composeContent(turn)})
	sess.DeriveTitle()

	modelName := turn.Model
	if modelName == "" {
		modelName = c.defaultModel
	}
	outgoing := c.composeUpstream(sess.Messages)

	if n, err := c.ai.CountTokens(ctx, modelName, outgoing); err == nil {
		metrics.ObservePromptTokens(providerOf(modelName), modelName, n)
	}

	c.setState(key, turnSending)
	start := time.Now()
	var (
		assembled strings.Builder
		pending   strings.Builder
		lastFlush = time.Now()
		first     = true
	)
	streamErr := c.ai.ChatStream(ctx, modelName, outgoing, func(delta string) {
		if first {
			first = false
			c.setState(key, turnStreaming)
			metrics.ObserveFirstDelta(providerOf(modelName), modelName, int(time.Since(start).Milliseconds()))
		}
		metrics.ObserveStreamDelta(providerOf(modelName), modelName)
		assembled.WriteString(delta)
		pending.WriteString(delta)
		// Deltas are batched and forwarded on a fixed cadence to keep the
		// client-facing stream from fragmenting into tiny writes.
		if time.Since(lastFlush) >= c.flushInterval {
			sink(pending.String())
			pending.Reset()
			lastFlush = time.Now()
		}
	})
	if pending.Len() > 0 {
		sink(pending.String())
	}
	metrics.ObserveStream(providerOf(modelName), modelName, int(time.Since(start).Milliseconds()), streamErr == nil)

	if streamErr != nil {
		// The turn failed: record a synthetic assistant message so the
		// session history shows what happened. Composition filters these
		// out of future upstream context.
		log.Warn().Err(streamErr).Str("model", modelName).Msg("stream turn failed")
		sess.Append(model.Message{
			Role:    model.RoleAssistant,
			Content: model.TextContent(model.ErrorPrefix + streamErr.Error()),
		})
		if saveErr := c.store.UpdateOne(ctx, owner, sess); saveErr != nil {
			log.Error().Err(saveErr).Msg("persist error message failed")
		}
		return sess, streamErr
	}

	// Exactly one store update finalizes the turn: the user message and
	// the assembled assistant reply land together.
	sess.Append(model.Message{
		Role:    model.RoleAssistant,
		Content: model.TextContent(assembled.String()),
	})
	if err := c.store.UpdateOne(ctx, owner, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

func (c *chatUC) Relay(ctx context.Context, modelName string, messages []model.Message, sink adapter.StreamHandler) error {
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.Relay")()

	if len(messages) == 0 {
		return domain.ErrInvalidArgument
	}
	if modelName == "" {
		modelName = c.defaultModel
	}
	outgoing := c.composeUpstream(messages)

	if n, err := c.ai.CountTokens(ctx, modelName, outgoing); err == nil {
		metrics.ObservePromptTokens(providerOf(modelName), modelName, n)
	}

	start := time.Now()
	var (
		pending   strings.Builder
		lastFlush = time.Now()
		first     = true
	)
	err := c.ai.ChatStream(ctx, modelName, outgoing, func(delta string) {
		if first {
			first = false
			metrics.ObserveFirstDelta(providerOf(modelName), modelName, int(time.Since(start).Milliseconds()))
		}
		metrics.ObserveStreamDelta(providerOf(modelName), modelName)
		pending.WriteString(delta)
		if time.Since(lastFlush) >= c.flushInterval {
			sink(pending.String())
			pending.Reset()
			lastFlush = time.Now()
		}
	})
	if pending.Len() > 0 {
		sink(pending.String())
	}
	metrics.ObserveStream(providerOf(modelName), modelName, int(time.Since(start).Milliseconds()), err == nil)
	return err
}

// composeContent builds the stored message body: a plain string when the
// turn is text-only, otherwise an ordered part sequence with the text first.
func composeContent(turn Turn) model.MessageContent {
	if len(turn.Images) == 0 {
		return model.TextContent(turn.Text)
	}
	parts := make([]model.ContentPart, 0, len(turn.Images)+1)
	if turn.Text != "" {
		parts = append(parts, model.TextPart(turn.Text))
	}
	for _, uri := range turn.Images {
		parts = append(parts, model.ImagePart(uri))
	}
	return model.PartsContent(parts...)
}

// composeUpstream assembles the outgoing context: optional system prompt,
// then the session history minus synthetic error messages, with image
// payloads replaced by placeholders everywhere except the newest user
// message.
func (c *chatUC) composeUpstream(history []model.Message) []model.Message {
	out := make([]model.Message, 0, len(history)+1)
	if c.systemPrompt != "" {
		out = append(out, model.Message{Role: model.RoleSystem, Content: model.TextContent(c.systemPrompt)})
	}

	lastUser := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			lastUser = i
			break
		}
	}
	for i, m := range history {
		if m.IsSyntheticError() {
			continue
		}
		if i != lastUser && m.Content.HasImages() {
			m.Content = m.Content.WithoutImages(model.ImagePlaceholder)
		}
		out = append(out, m)
	}
	return out
}

func (c *chatUC) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[key] != turnIdle {
		return false
	}
	c.states[key] = turnSending
	return true
}

func (c *chatUC) setState(key string, s turnState) {
	c.mu.Lock()
	c.states[key] = s
	c.mu.Unlock()
}

func (c *chatUC) release(key string) {
	c.mu.Lock()
	delete(c.states, key)
	c.mu.Unlock()
}

func providerOf(modelName string) string {
	l := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return "other"
	}
}
