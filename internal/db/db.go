// Package db provides the account store implementations: PostgreSQL (pgx),
// SQLite (modernc) and an in-memory store. Postgres repositories accept a
// DBTX interface that is satisfied by both *pgxpool.Pool and pgx.Tx.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"moviesvc/internal/config"
	"moviesvc/internal/types"

	// Registers the "pgx" database/sql driver used for migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountStore is implemented by every store in this package.
type AccountStore interface {
	FindByIdentity(ctx context.Context, identity string) (*types.Account, error)
	Save(ctx context.Context, account *types.Account) error
}

// msgAccountNotFound is the client-facing message for a missing account.
const msgAccountNotFound = "Not Found"

func errAccountNotFound(identity string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundAccount, msgAccountNotFound, nil,
		map[string]any{"identity": identity})
}

// NewPool creates a pgx connection pool tuned from the store configuration.
func NewPool(ctx context.Context, cfg config.StoreConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenPostgresSQL opens a database/sql handle over pgx. Migrations use it
// because goose works with *sql.DB.
func OpenPostgresSQL(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return conn, nil
}

// OpenSQLite opens (creating if needed) the SQLite database file at path.
// Writers wait on a busy database instead of failing immediately.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return conn, nil
}
