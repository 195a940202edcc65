package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIStreamAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter talks to a Chat Completions endpoint with stream delivery.
// Multimodal message bodies are sent as-is: the content union marshals to
// either a plain string or a part array in the provider's wire shape.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(baseURL, "/"),
		model:  model,
		// No client timeout: streams stay open as long as the model talks.
		// Cancellation comes from the request context.
		client: &http.Client{},
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

// CountTokens estimates prompt tokens with the model's BPE vocabulary,
// falling back to cl100k_base for models tiktoken doesn't know.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	if modelName == "" {
		modelName = o.model
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, fmt.Errorf("tiktoken: %w", err)
		}
	}
	total := 0
	for _, m := range messages {
		// Role plus frame tokens, then the visible text. Image payloads
		// are not tokenized here.
		total += 4
		total += len(enc.Encode(m.Content.DisplayText(), nil, nil))
	}
	return total, nil
}

type wireMessage struct {
	Role    string               `json:"role"`
	Content model.MessageContent `json:"content"`
}

func (o *OpenAIAdapter) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	if modelName == "" {
		modelName = o.model
	}
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := struct {
		Model    string        `json:"model"`
		Messages []wireMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}{Model: modelName, Messages: wire, Stream: true}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &adapter.UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	reader := newSSEReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Malformed frames are skipped, not fatal.
			continue
		}
		if delta := chunk.content(); delta != "" {
			fn(delta)
		}
	}
}
