package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func dataURI(payloadLen int) string {
	return "data:image/png;base64," + strings.Repeat("A", payloadLen)
}

func TestMessageContentJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   MessageContent
		wire string
	}{
		{"plain text", TextContent("hello"), `"hello"`},
		{"empty text", TextContent(""), `""`},
		{
			"text and image parts",
			PartsContent(TextPart("see this"), ImagePart(dataURI(4))),
			`[{"type":"text","text":"see this"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tc.wire {
				t.Fatalf("wire form = %s, want %s", b, tc.wire)
			}
			var out MessageContent
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.IsParts() != tc.in.IsParts() {
				t.Fatalf("rendition changed across round trip")
			}
			if out.DisplayText() != tc.in.DisplayText() {
				t.Fatalf("display text = %q, want %q", out.DisplayText(), tc.in.DisplayText())
			}
		})
	}
}

func TestContentPartEstimatedBytes(t *testing.T) {
	cases := []struct {
		name string
		part ContentPart
		want int64
	}{
		{"text part", TextPart("hi"), 0},
		{"remote url ignored", ImagePart("https://example.com/cat.png"), 0},
		{"data uri", ImagePart(dataURI(1000)), 750},
		{"empty payload", ImagePart("data:image/png;base64,"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.part.EstimatedBytes(); got != tc.want {
				t.Fatalf("EstimatedBytes() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWithoutImages(t *testing.T) {
	c := PartsContent(TextPart("look"), ImagePart(dataURI(8)), ImagePart(dataURI(8)))
	out := c.WithoutImages(ImagePlaceholder)

	parts := out.Parts()
	if len(parts) != 3 {
		t.Fatalf("part count = %d, want 3", len(parts))
	}
	for i, p := range parts[1:] {
		if p.Type != PartTypeText || p.Text != ImagePlaceholder {
			t.Fatalf("part %d not rewritten: %+v", i+1, p)
		}
	}
	// original must stay byte-identical
	if c.Parts()[1].ImageURL == nil {
		t.Fatal("source content mutated")
	}

	plain := TextContent("hi")
	if got := plain.WithoutImages(ImagePlaceholder); got.Text() != "hi" {
		t.Fatalf("plain content changed: %q", got.Text())
	}
}

func TestIsSyntheticError(t *testing.T) {
	err := Message{Role: RoleAssistant, Content: TextContent("Error: rate limited")}
	ok := Message{Role: RoleAssistant, Content: TextContent("all good")}
	user := Message{Role: RoleUser, Content: TextContent("Error: my own text")}

	if !err.IsSyntheticError() {
		t.Fatal("error bubble not detected")
	}
	if ok.IsSyntheticError() || user.IsSyntheticError() {
		t.Fatal("false positive")
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name  string
		msg   Message
		want  string
		setup func(*ChatSession)
	}{
		{
			"short text",
			Message{Role: RoleUser, Content: TextContent("Hello")},
			"Hello", nil,
		},
		{
			"long text truncated",
			Message{Role: RoleUser, Content: TextContent(strings.Repeat("x", 40))},
			strings.Repeat("x", 30) + "...", nil,
		},
		{
			"image only",
			Message{Role: RoleUser, Content: PartsContent(ImagePart(dataURI(4)))},
			"[Image]", nil,
		},
		{
			"existing title kept",
			Message{Role: RoleUser, Content: TextContent("ignored")},
			"custom",
			func(s *ChatSession) { s.Title = "custom" },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewChatSession("s1")
			if tc.setup != nil {
				tc.setup(s)
			}
			s.Append(tc.msg)
			s.DeriveTitle()
			if s.Title != tc.want {
				t.Fatalf("title = %q, want %q", s.Title, tc.want)
			}
		})
	}
}

func TestTrimMessages(t *testing.T) {
	s := NewChatSession("s1")
	for i := 0; i < 25; i++ {
		s.Append(Message{Role: RoleUser, Content: TextContent(strings.Repeat("m", i+1))})
	}
	s.TrimMessages(20)
	if len(s.Messages) != 20 {
		t.Fatalf("message count = %d, want 20", len(s.Messages))
	}
	// newest kept: last message has 25 chars
	if got := len(s.Messages[len(s.Messages)-1].Content.Text()); got != 25 {
		t.Fatalf("newest message lost, tail len = %d", got)
	}
	if got := len(s.Messages[0].Content.Text()); got != 6 {
		t.Fatalf("oldest retained should be #6, got len %d", got)
	}
}

func TestCapImageBytes(t *testing.T) {
	// each image part estimates to 750 bytes
	s := NewChatSession("s1")
	for i := 0; i < 4; i++ {
		s.Append(Message{Role: RoleUser, Content: PartsContent(TextPart("img"), ImagePart(dataURI(1000)))})
	}
	s.CapImageBytes(1500) // room for two images

	var images int
	for _, m := range s.Messages {
		for _, p := range m.Content.Parts() {
			if p.Type == PartTypeImage {
				images++
			}
		}
	}
	if images != 2 {
		t.Fatalf("retained images = %d, want 2", images)
	}
	// earlier-fitting ones kept, later dropped
	if !s.Messages[0].Content.HasImages() || s.Messages[3].Content.HasImages() {
		t.Fatal("wrong images dropped")
	}
}

func TestCapImageBytesKeepsFirstOversized(t *testing.T) {
	s := NewChatSession("s1")
	s.Append(Message{Role: RoleUser, Content: PartsContent(ImagePart(dataURI(4000)))})
	s.Append(Message{Role: RoleUser, Content: PartsContent(ImagePart(dataURI(4)))})
	s.CapImageBytes(100)

	if !s.Messages[0].Content.HasImages() {
		t.Fatal("first image must survive even when over budget alone")
	}
	if s.Messages[1].Content.HasImages() {
		t.Fatal("subsequent image should be dropped")
	}
}

func TestLimitSessions(t *testing.T) {
	base := time.Now()
	var sessions []*ChatSession
	for i := 0; i < 5; i++ {
		s := NewChatSession(string(rune('a' + i)))
		s.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		sessions = append(sessions, s)
	}
	kept := LimitSessions(sessions, 3)
	if len(kept) != 3 {
		t.Fatalf("kept = %d, want 3", len(kept))
	}
	// most recently updated first
	want := []string{"e", "d", "c"}
	for i, s := range kept {
		if s.ID != want[i] {
			t.Fatalf("kept[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
}

func TestExtendAccess(t *testing.T) {
	now := time.Now()

	u := &User{ExpiresAt: now.Add(time.Hour)}
	u.ExtendAccess(now, 24*time.Hour)
	if got := u.ExpiresAt.Sub(now); got != 25*time.Hour {
		t.Fatalf("active account extension = %v, want 25h", got)
	}

	u = &User{ExpiresAt: now.Add(-time.Hour)}
	u.ExtendAccess(now, 24*time.Hour)
	if got := u.ExpiresAt.Sub(now); got != 24*time.Hour {
		t.Fatalf("expired account extension = %v, want 24h", got)
	}
}
