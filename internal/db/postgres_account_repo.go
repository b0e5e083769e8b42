package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"moviesvc/internal/types"
)

// PostgresAccountRepository stores accounts in the accounts table with the
// collection held as JSONB.
type PostgresAccountRepository struct {
	db DBTX
}

// NewPostgresAccountRepository creates a repository backed by the given
// connection (pool or transaction).
func NewPostgresAccountRepository(db DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `identity, tier, collection, usage_window_end, usage_count, created_at, updated_at`

func scanAccount(row pgx.Row) (*types.Account, error) {
	var (
		a          types.Account
		tier       string
		collection []byte
	)
	if err := row.Scan(
		&a.Identity,
		&tier,
		&collection,
		&a.UsageWindowEnd,
		&a.UsageCount,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Tier = types.Tier(tier)
	if err := decodeCollection(collection, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIdentity loads the account for identity. Returns a not_found_account
// AppError when no row exists.
func (r *PostgresAccountRepository) FindByIdentity(ctx context.Context, identity string) (*types.Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE identity = $1`,
		identity,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errAccountNotFound(identity)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load account", err)
	}
	return a, nil
}

// Save upserts the whole account.
func (r *PostgresAccountRepository) Save(ctx context.Context, a *types.Account) error {
	collection, err := encodeCollection(a)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode collection", err)
	}

	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := a.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7)
		 ON CONFLICT (identity) DO UPDATE SET
		   tier = EXCLUDED.tier,
		   collection = EXCLUDED.collection,
		   usage_window_end = EXCLUDED.usage_window_end,
		   usage_count = EXCLUDED.usage_count,
		   updated_at = EXCLUDED.updated_at`,
		a.Identity,
		string(a.Tier),
		collection,
		a.UsageWindowEnd,
		a.UsageCount,
		createdAt,
		updatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save account", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (r *PostgresAccountRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

// encodeCollection renders the collection as a JSON array; nil becomes [].
func encodeCollection(a *types.Account) (string, error) {
	movies := a.Collection
	if movies == nil {
		movies = []types.Movie{}
	}
	b, err := json.Marshal(movies)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeCollection(raw []byte, a *types.Account) error {
	a.Collection = []types.Movie{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &a.Collection); err != nil {
		return fmt.Errorf("decode collection for %s: %w", a.Identity, err)
	}
	if a.Collection == nil {
		a.Collection = []types.Movie{}
	}
	return nil
}
