package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moviesvc/internal/types"
)

// sqliteTimeLayout is the TEXT encoding used for timestamps.
const sqliteTimeLayout = time.RFC3339Nano

// SQLiteAccountRepository stores accounts in a SQLite database.
type SQLiteAccountRepository struct {
	db *sql.DB
}

// NewSQLiteAccountRepository creates a repository over an open SQLite handle.
func NewSQLiteAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

// FindByIdentity loads the account for identity.
func (r *SQLiteAccountRepository) FindByIdentity(ctx context.Context, identity string) (*types.Account, error) {
	var (
		a                               types.Account
		tier, collection                string
		windowEnd, createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE identity = ?`,
		identity,
	).Scan(&a.Identity, &tier, &collection, &windowEnd, &a.UsageCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errAccountNotFound(identity)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load account", err)
	}

	a.Tier = types.Tier(tier)
	if err := decodeCollection([]byte(collection), &a); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load account", err)
	}
	for _, f := range []struct {
		src string
		dst *time.Time
	}{
		{windowEnd, &a.UsageWindowEnd},
		{createdAt, &a.CreatedAt},
		{updatedAt, &a.UpdatedAt},
	} {
		t, err := time.Parse(sqliteTimeLayout, f.src)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load account",
				fmt.Errorf("parse timestamp %q: %w", f.src, err))
		}
		*f.dst = t
	}
	return &a, nil
}

// Save upserts the whole account.
func (r *SQLiteAccountRepository) Save(ctx context.Context, a *types.Account) error {
	collection, err := encodeCollection(a)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode collection", err)
	}

	now := time.Now().UTC()
	createdAt, updatedAt := a.CreatedAt, a.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identity) DO UPDATE SET
		   tier = excluded.tier,
		   collection = excluded.collection,
		   usage_window_end = excluded.usage_window_end,
		   usage_count = excluded.usage_count,
		   updated_at = excluded.updated_at`,
		a.Identity,
		string(a.Tier),
		collection,
		a.UsageWindowEnd.Format(sqliteTimeLayout),
		a.UsageCount,
		createdAt.Format(sqliteTimeLayout),
		updatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save account", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (r *SQLiteAccountRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
