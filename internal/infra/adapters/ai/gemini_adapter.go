package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"google.golang.org/genai"

	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
)

var _ adapter.AIStreamAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	models := g.client.Models.All(ctx)
	var out []string
	for m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	if len(out) == 0 && g.defaultModel != "" {
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error) {
	contents := toGenAIHistory(messages)
	resp, err := g.client.Models.CountTokens(ctx, modelOrDefault(modelName, g.defaultModel), contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiAdapter) ChatStream(ctx context.Context, modelName string, messages []model.Message, fn adapter.StreamHandler) error {
	if len(messages) == 0 {
		return errors.New("gemini: no messages")
	}
	contents := toGenAIHistory(messages)
	stream := g.client.Models.GenerateContentStream(
		ctx,
		modelOrDefault(modelName, g.defaultModel),
		contents,
		nil,
	)
	for resp, err := range stream {
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil && p.Text != "" {
				fn(p.Text)
			}
		}
	}
	return nil
}

func toGenAIHistory(msgs []model.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case model.RoleAssistant, "model":
			role = genai.RoleModel
		case model.RoleSystem:
			// Gemini has no separate system role in history; treat as a
			// user instruction.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{Role: role, Parts: toGenAIParts(m.Content)})
	}
	return out
}

func toGenAIParts(c model.MessageContent) []*genai.Part {
	if !c.IsParts() {
		return []*genai.Part{{Text: c.Text()}}
	}
	var out []*genai.Part
	for _, p := range c.Parts() {
		switch p.Type {
		case model.PartTypeText:
			out = append(out, &genai.Part{Text: p.Text})
		case model.PartTypeImage:
			if p.ImageURL == nil {
				continue
			}
			if blob, ok := dataURIBlob(p.ImageURL.URL); ok {
				out = append(out, &genai.Part{InlineData: blob})
			}
		}
	}
	if len(out) == 0 {
		out = []*genai.Part{{Text: ""}}
	}
	return out
}

// dataURIBlob decodes a base64 data URI into an inline blob. Non-data or
// undecodable URIs are dropped rather than sent broken.
func dataURIBlob(uri string) (*genai.Blob, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, false
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, false
	}
	meta := uri[len("data:"):comma]
	mime := strings.TrimSuffix(meta, ";base64")
	raw, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, false
	}
	return &genai.Blob{MIMEType: mime, Data: raw}, true
}

func modelOrDefault(modelName, def string) string {
	if strings.TrimSpace(modelName) != "" {
		return modelName
	}
	return def
}
