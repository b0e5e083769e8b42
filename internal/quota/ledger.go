package quota

import (
	"fmt"
	"log/slog"
	"time"

	"moviesvc/internal/types"
)

// Ledger applies the monthly window reset and the per-tier admission check.
// It mutates the Account in memory; persisting it is the caller's job.
//
// Concurrent adds for the same account are read-modify-write against the
// store without a version check, so two racing requests can both be admitted
// at limit-1.
type Ledger struct {
	registry *Registry
	logger   *slog.Logger
}

// NewLedger creates a Ledger. A nil logger uses slog.Default().
func NewLedger(registry *Registry, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{registry: registry, logger: logger}
}

// Refresh resets the usage counter when the window has expired
// (now >= UsageWindowEnd) and reports whether it did.
func (l *Ledger) Refresh(account *types.Account, now time.Time) bool {
	if !Expired(account.UsageWindowEnd, now) {
		return false
	}
	account.UsageWindowEnd = NextMonthStart(now)
	account.UsageCount = 0
	l.logger.Debug("quota window reset",
		"identity", account.Identity,
		"window_end", account.UsageWindowEnd,
	)
	return true
}

// CheckAndReserve refreshes the window and then decides admission using the
// policy for the account's tier. No reservation is held on success; the
// caller must Commit after the add succeeds.
func (l *Ledger) CheckAndReserve(account *types.Account, now time.Time) error {
	l.Refresh(account, now)

	applied, policy := l.registry.Resolve(account.Tier)
	if policy.Admits(account.UsageCount) {
		return nil
	}

	l.logger.Info("monthly quota exceeded",
		"identity", account.Identity,
		"tier", account.Tier,
		"applied_tier", applied,
		"usage_count", account.UsageCount,
		"limit", policy.Max(),
	)
	return types.NewAppErrorWithDetails(
		types.ErrCodeLimitMonthlyQuota,
		fmt.Sprintf("Monthly limit reached for %s user", applied),
		nil,
		map[string]any{"limit": policy.Max(), "reset_at": account.UsageWindowEnd},
	)
}

// Commit counts one successful add against the current window.
func (l *Ledger) Commit(account *types.Account) {
	account.UsageCount++
}
