package db

import (
	"context"
	"errors"
	"time"

	"moviesvc/internal/quota"
	"moviesvc/internal/types"
)

// DefaultAccount is a fixture account created at startup.
type DefaultAccount struct {
	Identity string
	Tier     types.Tier
}

// DefaultAccounts are the accounts known to the development identity
// authority.
var DefaultAccounts = []DefaultAccount{
	{Identity: "123", Tier: types.TierBasic},
	{Identity: "434", Tier: types.TierPremium},
}

// SeedDefaultAccounts creates every DefaultAccounts entry that does not exist
// yet and returns the identities it created. Existing accounts are left as is.
func SeedDefaultAccounts(ctx context.Context, store AccountStore, now time.Time) ([]string, error) {
	var created []string
	for _, d := range DefaultAccounts {
		_, err := store.FindByIdentity(ctx, d.Identity)
		if err == nil {
			continue
		}
		var appErr *types.AppError
		if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeNotFoundAccount {
			return created, err
		}
		if err := store.Save(ctx, quota.NewAccount(d.Identity, d.Tier, now)); err != nil {
			return created, err
		}
		created = append(created, d.Identity)
	}
	return created, nil
}
