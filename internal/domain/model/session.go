package model

import (
	"sort"
	"time"
)

// DefaultTitle is the label a session carries until its first user message.
const DefaultTitle = "New Chat"

const titleRuneLimit = 30

// ChatSession is one conversation transcript, owned entirely by its user.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewChatSession(id string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        id,
		Title:     DefaultTitle,
		Messages:  make([]Message, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the end of the transcript and bumps UpdatedAt.
func (s *ChatSession) Append(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now()
}

// Touch bumps UpdatedAt, the sole sort key for session listings.
func (s *ChatSession) Touch() { s.UpdatedAt = time.Now() }

// DeriveTitle sets the title from the first user message when the session
// still carries the default label. Image-only first messages get a marker
// instead of an empty title.
func (s *ChatSession) DeriveTitle() {
	if s.Title != DefaultTitle {
		return
	}
	for _, m := range s.Messages {
		if m.Role != RoleUser {
			continue
		}
		text := m.Content.DisplayText()
		if text == "" && m.Content.HasImages() {
			text = "[Image]"
		}
		if text == "" {
			return
		}
		runes := []rune(text)
		if len(runes) > titleRuneLimit {
			s.Title = string(runes[:titleRuneLimit]) + "..."
		} else {
			s.Title = text
		}
		return
	}
}

// TrimMessages keeps only the newest max messages.
func (s *ChatSession) TrimMessages(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	s.Messages = s.Messages[len(s.Messages)-max:]
}

// CapImageBytes walks image parts in transcript order accumulating an
// estimated byte total and drops any part that would push the total past the
// budget. The first image of a session survives even when it alone exceeds
// the budget; only later parts are dropped.
func (s *ChatSession) CapImageBytes(budget int64) {
	if budget <= 0 {
		return
	}
	var total int64
	for i := range s.Messages {
		parts := s.Messages[i].Content.Parts()
		if parts == nil {
			continue
		}
		kept := parts[:0:0]
		for _, p := range parts {
			size := p.EstimatedBytes()
			if size > 0 {
				if total+size > budget && total > 0 {
					continue
				}
				total += size
			}
			kept = append(kept, p)
		}
		if len(kept) != len(parts) {
			s.Messages[i].Content = PartsContent(kept...)
		}
	}
}

// SortSessions orders sessions by UpdatedAt descending, in place.
func SortSessions(sessions []*ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

// LimitSessions keeps only the max most-recently-updated sessions.
func LimitSessions(sessions []*ChatSession, max int) []*ChatSession {
	if max <= 0 || len(sessions) <= max {
		return sessions
	}
	sorted := make([]*ChatSession, len(sessions))
	copy(sorted, sessions)
	SortSessions(sorted)
	return sorted[:max]
}

// RetentionPolicy bounds what a save is allowed to persist.
type RetentionPolicy struct {
	MaxSessions           int
	MaxMessagesPerSession int
	MaxImageBytes         int64
}

// Apply enforces the policy in order: cross-session eviction, per-session
// message trim, per-session image byte cap. The input slice is not mutated;
// retained sessions are.
func (p RetentionPolicy) Apply(sessions []*ChatSession) []*ChatSession {
	kept := LimitSessions(sessions, p.MaxSessions)
	for _, s := range kept {
		s.TrimMessages(p.MaxMessagesPerSession)
		s.CapImageBytes(p.MaxImageBytes)
	}
	return kept
}
