package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"webgpt-server/internal/domain/ports/repository"
)

// The qx argument threads an optional transaction handle through repository
// calls: pgx.Tx inside TxManager.WithTx, a checked-out *pgxpool.Conn, or nil
// for the plain pool path.

func pickRow(ctx context.Context, pool *pgxpool.Pool, qx repository.Tx, sql string, args ...interface{}) pgx.Row {
	switch v := qx.(type) {
	case pgx.Tx:
		return v.QueryRow(ctx, sql, args...)
	case *pgxpool.Conn:
		return v.QueryRow(ctx, sql, args...)
	default:
		return pool.QueryRow(ctx, sql, args...)
	}
}

func pickQuery(ctx context.Context, pool *pgxpool.Pool, qx repository.Tx, sql string, args ...interface{}) (pgx.Rows, error) {
	switch v := qx.(type) {
	case pgx.Tx:
		return v.Query(ctx, sql, args...)
	case *pgxpool.Conn:
		return v.Query(ctx, sql, args...)
	default:
		return pool.Query(ctx, sql, args...)
	}
}

func pickExec(ctx context.Context, pool *pgxpool.Pool, qx repository.Tx, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	switch v := qx.(type) {
	case pgx.Tx:
		return v.Exec(ctx, sql, args...)
	case *pgxpool.Conn:
		return v.Exec(ctx, sql, args...)
	default:
		return pool.Exec(ctx, sql, args...)
	}
}

// isUniqueViolation reports whether err is Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
