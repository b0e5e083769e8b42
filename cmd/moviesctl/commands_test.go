package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesvc/internal/config"
	"moviesvc/internal/types"
)

var fixedNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

func sqliteCLI(t *testing.T) *cli {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.db")
	return &cli{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{Store: config.StoreConfig{Driver: "sqlite", SQLitePath: path}}, nil
		},
		now: func() time.Time { return fixedNow },
	}
}

func executeCLI(t *testing.T, c *cli, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(c)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestMigrate(t *testing.T) {
	c := sqliteCLI(t)

	stdout, _, err := executeCLI(t, c, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "migrations applied (sqlite)")

	_, _, err = executeCLI(t, c, "migrate")
	require.NoError(t, err)
}

func TestSeedThenShow(t *testing.T) {
	c := sqliteCLI(t)

	stdout, _, err := executeCLI(t, c, "seed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "created: 123, 434")

	stdout, _, err = executeCLI(t, c, "seed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "already present")

	stdout, _, err = executeCLI(t, c, "account", "show", "434")
	require.NoError(t, err)

	var acct types.Account
	require.NoError(t, json.Unmarshal([]byte(stdout), &acct))
	assert.Equal(t, "434", acct.Identity)
	assert.Equal(t, types.TierPremium, acct.Tier)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), acct.UsageWindowEnd.UTC())
}

func TestSetTier(t *testing.T) {
	c := sqliteCLI(t)
	_, _, err := executeCLI(t, c, "seed")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, c, "account", "set-tier", "123", "premium")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"tier": "premium"`)

	stdout, _, err = executeCLI(t, c, "account", "show", "123")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"tier": "premium"`)
}

func TestSetTier_RejectsUnknownTier(t *testing.T) {
	c := sqliteCLI(t)

	_, _, err := executeCLI(t, c, "account", "set-tier", "123", "gold")
	assert.ErrorContains(t, err, `unknown tier "gold"`)
}

func TestShow_UnknownAccount(t *testing.T) {
	c := sqliteCLI(t)
	_, _, err := executeCLI(t, c, "migrate")
	require.NoError(t, err)

	_, _, err = executeCLI(t, c, "account", "show", "999")
	assert.ErrorContains(t, err, "Not Found")
}

func TestArgsValidation(t *testing.T) {
	c := sqliteCLI(t)

	_, _, err := executeCLI(t, c, "account", "show")
	assert.Error(t, err)

	_, _, err = executeCLI(t, c, "account", "set-tier", "123")
	assert.Error(t, err)
}

func TestMemoryDriverRejected(t *testing.T) {
	c := &cli{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{Store: config.StoreConfig{Driver: "memory"}}, nil
		},
		now: time.Now,
	}

	_, _, err := executeCLI(t, c, "migrate")
	assert.ErrorIs(t, err, errMemoryStore)
}
