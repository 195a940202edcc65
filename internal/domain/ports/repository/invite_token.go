package repository

import (
	"context"

	"webgpt-server/internal/domain/model"
)

// -----------------------------
// Invite tokens
// -----------------------------

type InviteTokenRepository interface {
	Save(ctx context.Context, tx Tx, t *model.InviteToken) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.InviteToken, error)
	// MarkUsed consumes the token; fails with domain.ErrTokenUsed when it was
	// already spent.
	MarkUsed(ctx context.Context, tx Tx, code string) error
	List(ctx context.Context, tx Tx) ([]*model.InviteToken, error)
}
