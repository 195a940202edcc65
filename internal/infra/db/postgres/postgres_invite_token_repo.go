package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/repository"
)

var _ repository.InviteTokenRepository = (*PostgresInviteTokenRepo)(nil)

type PostgresInviteTokenRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInviteTokenRepo(pool *pgxpool.Pool) *PostgresInviteTokenRepo {
	return &PostgresInviteTokenRepo{pool: pool}
}

func (r *PostgresInviteTokenRepo) Save(ctx context.Context, qx repository.Tx, t *model.InviteToken) error {
	const q = `
INSERT INTO invite_tokens (code, duration_hours, is_used, created_by, created_at)
VALUES ($1,$2,$3,$4,$5);`
	// created_by is a nullable FK; tokens minted by tooling carry none.
	var createdBy any
	if t.CreatedBy != "" {
		createdBy = t.CreatedBy
	}
	_, err := pickExec(ctx, r.pool, qx, q, t.Code, t.DurationHours, t.IsUsed, createdBy, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save invite token: %w", err)
	}
	return nil
}

func (r *PostgresInviteTokenRepo) FindByCode(ctx context.Context, qx repository.Tx, code string) (*model.InviteToken, error) {
	const q = `
SELECT code, duration_hours, is_used, COALESCE(created_by::text, ''), created_at
  FROM invite_tokens WHERE code=$1;`
	row := pickRow(ctx, r.pool, qx, q, code)
	var t model.InviteToken
	if err := row.Scan(&t.Code, &t.DurationHours, &t.IsUsed, &t.CreatedBy, &t.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkUsed spends the code. The WHERE guard makes consumption atomic: a
// second spender matches zero rows.
func (r *PostgresInviteTokenRepo) MarkUsed(ctx context.Context, qx repository.Tx, code string) error {
	const q = `UPDATE invite_tokens SET is_used=TRUE WHERE code=$1 AND is_used=FALSE;`
	tag, err := pickExec(ctx, r.pool, qx, q, code)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByCode(ctx, qx, code); err != nil {
			return err
		}
		return domain.ErrTokenUsed
	}
	return nil
}

func (r *PostgresInviteTokenRepo) List(ctx context.Context, qx repository.Tx) ([]*model.InviteToken, error) {
	const q = `
SELECT code, duration_hours, is_used, COALESCE(created_by::text, ''), created_at
  FROM invite_tokens ORDER BY created_at DESC;`
	rows, err := pickQuery(ctx, r.pool, qx, q)
	if err != nil {
		return nil, fmt.Errorf("list invite tokens: %w", err)
	}
	defer rows.Close()

	var out []*model.InviteToken
	for rows.Next() {
		var t model.InviteToken
		if err := rows.Scan(&t.Code, &t.DurationHours, &t.IsUsed, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invite token: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
