package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrorPrefix marks synthetic assistant messages produced when a turn fails.
// Request composition filters such messages out of the upstream context.
const ErrorPrefix = "Error: "

// ImagePlaceholder replaces image parts of older turns in the outgoing
// context so only the newest user message carries full image payloads.
const ImagePlaceholder = "[image omitted]"

const (
	PartTypeText  = "text"
	PartTypeImage = "image_url"
)

// ImageURL wraps a self-contained data URI. Stored image parts never carry
// bare remote references.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

func ImagePart(dataURI string) ContentPart {
	return ContentPart{Type: PartTypeImage, ImageURL: &ImageURL{URL: dataURI}}
}

// EstimatedBytes returns the decoded size estimate of an embedded image,
// derived from the base64 payload length. Non-image parts and parts without
// a data:image URI estimate to zero.
func (p ContentPart) EstimatedBytes() int64 {
	if p.Type != PartTypeImage || p.ImageURL == nil {
		return 0
	}
	url := p.ImageURL.URL
	if !strings.HasPrefix(url, "data:image") {
		return 0
	}
	i := strings.IndexByte(url, ',')
	if i < 0 || i+1 >= len(url) {
		return 0
	}
	return int64(float64(len(url)-i-1) * 0.75)
}

// MessageContent is the tagged union of the two content renditions: a plain
// string for text-only turns, or an ordered part sequence for multimodal
// turns. The zero value is empty text.
type MessageContent struct {
	text  string
	parts []ContentPart
	multi bool
}

func TextContent(s string) MessageContent {
	return MessageContent{text: s}
}

func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{parts: parts, multi: true}
}

// IsParts reports whether the content is the multimodal rendition.
func (c MessageContent) IsParts() bool { return c.multi }

// Text returns the plain-string body. Empty for the parts rendition.
func (c MessageContent) Text() string {
	if c.multi {
		return ""
	}
	return c.text
}

// Parts returns the part sequence. Nil for the plain rendition.
func (c MessageContent) Parts() []ContentPart { return c.parts }

// DisplayText extracts the human-readable text: the plain string itself, or
// the concatenated text parts of a multimodal body.
func (c MessageContent) DisplayText() string {
	if !c.multi {
		return c.text
	}
	var b strings.Builder
	for _, p := range c.parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasImages reports whether any part carries an image payload.
func (c MessageContent) HasImages() bool {
	for _, p := range c.parts {
		if p.Type == PartTypeImage {
			return true
		}
	}
	return false
}

// WithoutImages rewrites every image part to a text part holding the given
// placeholder. Plain content is returned unchanged.
func (c MessageContent) WithoutImages(placeholder string) MessageContent {
	if !c.multi || !c.HasImages() {
		return c
	}
	out := make([]ContentPart, 0, len(c.parts))
	for _, p := range c.parts {
		if p.Type == PartTypeImage {
			out = append(out, TextPart(placeholder))
			continue
		}
		out = append(out, p)
	}
	return PartsContent(out...)
}

// MarshalJSON emits the wire form: a bare string or a part array.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.multi {
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts either wire form.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("decode content parts: %w", err)
		}
		*c = PartsContent(parts...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode content text: %w", err)
	}
	*c = TextContent(s)
	return nil
}

// Message is one conversation turn.
type Message struct {
	Role      string         `json:"role"`
	Content   MessageContent `json:"content"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// IsSyntheticError reports whether the message is a failure bubble produced
// by the streaming pipeline rather than real model output.
func (m Message) IsSyntheticError() bool {
	return m.Role == RoleAssistant && strings.HasPrefix(m.Content.DisplayText(), ErrorPrefix)
}
