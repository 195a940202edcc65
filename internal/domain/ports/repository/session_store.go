package repository

import (
	"context"

	"webgpt-server/internal/domain/model"
)

// StoreStats is a diagnostic aggregate over one owner's stored sessions.
type StoreStats struct {
	SessionCount  int   `json:"sessionCount"`
	MessageCount  int   `json:"messageCount"`
	EstimatedSize int64 `json:"estimatedSize"`
}

// SessionStore persists the full set of conversation sessions per owner,
// bounded by the configured retention policy on every save.
//
// Contract: SaveAll applies retention then upserts per record without an
// implicit clear; a failed record does not block the others, and the first
// error is returned after all writes have settled. UpdateOne applies only
// the per-session message trim, never the cross-session eviction.
type SessionStore interface {
	// LoadAll returns every stored session sorted by UpdatedAt descending.
	LoadAll(ctx context.Context, owner string) ([]*model.ChatSession, error)
	SaveAll(ctx context.Context, owner string, sessions []*model.ChatSession) error
	GetOne(ctx context.Context, owner, sessionID string) (*model.ChatSession, error)
	UpdateOne(ctx context.Context, owner string, session *model.ChatSession) error
	DeleteOne(ctx context.Context, owner, sessionID string) error
	ClearAll(ctx context.Context, owner string) error
	Stats(ctx context.Context, owner string) (StoreStats, error)
}
