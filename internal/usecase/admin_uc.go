// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/repository"
	"webgpt-server/internal/infra/logging"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

type AdminUseCase interface {
	MintToken(ctx context.Context, createdBy string, durationHours int) (*model.InviteToken, error)
	// ListTokens returns all invite codes, newest first.
	ListTokens(ctx context.Context) ([]*model.InviteToken, error)
	// ListUsers pages through accounts; returns the page and the total count.
	ListUsers(ctx context.Context, page, limit int) ([]*model.User, int, error)
}

type adminUC struct {
	users  repository.UserRepository
	tokens repository.InviteTokenRepository
	log    *zerolog.Logger
}

func NewAdminUseCase(users repository.UserRepository, tokens repository.InviteTokenRepository, logger *zerolog.Logger) *adminUC {
	return &adminUC{users: users, tokens: tokens, log: logger}
}

func (a *adminUC) MintToken(ctx context.Context, createdBy string, durationHours int) (*model.InviteToken, error) {
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "AdminUC.MintToken")()

	t, err := model.NewInviteToken(durationHours, createdBy)
	if err != nil {
		return nil, err
	}
	if err := a.tokens.Save(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}
	log.Info().Str("code", logging.Redact(t.Code, false)).Int("duration_hours", durationHours).Msg("invite token minted")
	return t, nil
}

func (a *adminUC) ListTokens(ctx context.Context) ([]*model.InviteToken, error) {
	return a.tokens.List(ctx, repository.NoTX)
}

func (a *adminUC) ListUsers(ctx context.Context, page, limit int) ([]*model.User, int, error) {
	if page < 1 || limit < 1 {
		return nil, 0, domain.ErrInvalidArgument
	}
	total, err := a.users.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, 0, err
	}
	users, err := a.users.List(ctx, repository.NoTX, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
