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

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, username, password_hash, role, expires_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6
) ON CONFLICT (id) DO UPDATE SET
  username=$2, password_hash=$3, role=$4, expires_at=$5;
`
	_, err := pickExec(ctx, r.pool, qx, q, u.ID, u.Username, u.PasswordHash, u.Role, u.ExpiresAt, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	const q = `
SELECT id, username, password_hash, role, expires_at, created_at
  FROM users WHERE id=$1;`
	row := pickRow(ctx, r.pool, qx, q, id)
	return scanUser(row)
}

func (r *PostgresUserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	const q = `
SELECT id, username, password_hash, role, expires_at, created_at
  FROM users WHERE username=$1;`
	row := pickRow(ctx, r.pool, qx, q, username)
	return scanUser(row)
}

func (r *PostgresUserRepo) List(ctx context.Context, qx repository.Tx, offset, limit int) ([]*model.User, error) {
	const q = `
SELECT id, username, password_hash, role, expires_at, created_at
  FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := pickQuery(ctx, r.pool, qx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.ExpiresAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *PostgresUserRepo) Count(ctx context.Context, qx repository.Tx) (int, error) {
	row := pickRow(ctx, r.pool, qx, `SELECT COUNT(*) FROM users;`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.ExpiresAt, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
