package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesvc/internal/types"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	conn, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "movies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, RunMigrations(ctx, conn, DialectSQLite))
	return conn
}

func TestSQLiteAccountRepository_RoundTrip(t *testing.T) {
	repo := NewSQLiteAccountRepository(setupSQLite(t))
	ctx := context.Background()

	title, genre := "Star Wars", "Sci-Fi"
	released := time.Date(1977, 5, 25, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 9, 30, 0, 123, time.UTC)

	in := &types.Account{
		Identity:       "123",
		Tier:           types.TierBasic,
		Collection:     []types.Movie{{Title: &title, Genre: &genre, Released: &released}, {}},
		UsageWindowEnd: windowEnd,
		UsageCount:     2,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.FindByIdentity(ctx, "123")
	require.NoError(t, err)

	assert.Equal(t, types.TierBasic, out.Tier)
	assert.Equal(t, 2, out.UsageCount)
	assert.True(t, windowEnd.Equal(out.UsageWindowEnd))
	assert.True(t, created.Equal(out.CreatedAt))
	require.Len(t, out.Collection, 2)
	assert.Equal(t, "Star Wars", *out.Collection[0].Title)
	assert.True(t, released.Equal(*out.Collection[0].Released))
	assert.Nil(t, out.Collection[0].Director)
	assert.Equal(t, types.Movie{}, out.Collection[1])
}

func TestSQLiteAccountRepository_SaveUpserts(t *testing.T) {
	repo := NewSQLiteAccountRepository(setupSQLite(t))
	ctx := context.Background()

	acct := &types.Account{Identity: "434", Tier: types.TierBasic, UsageWindowEnd: time.Now().UTC()}
	require.NoError(t, repo.Save(ctx, acct))

	acct.Tier = types.TierPremium
	acct.UsageCount = 7
	require.NoError(t, repo.Save(ctx, acct))

	out, err := repo.FindByIdentity(ctx, "434")
	require.NoError(t, err)
	assert.Equal(t, types.TierPremium, out.Tier)
	assert.Equal(t, 7, out.UsageCount)
	assert.NotNil(t, out.Collection)
}

func TestSQLiteAccountRepository_NotFound(t *testing.T) {
	repo := NewSQLiteAccountRepository(setupSQLite(t))

	_, err := repo.FindByIdentity(context.Background(), "nobody")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundAccount, appErr.Code)
}

func TestSQLiteAccountRepository_NegativeCountRejected(t *testing.T) {
	repo := NewSQLiteAccountRepository(setupSQLite(t))

	err := repo.Save(context.Background(), &types.Account{Identity: "1", UsageCount: -1})

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	conn := setupSQLite(t)
	assert.NoError(t, RunMigrations(context.Background(), conn, DialectSQLite))
}

func TestSQLiteAccountRepository_Ping(t *testing.T) {
	repo := NewSQLiteAccountRepository(setupSQLite(t))
	assert.NoError(t, repo.Ping(context.Background()))
}
