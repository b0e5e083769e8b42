package quota

import (
	"time"

	"moviesvc/internal/types"
)

// NextMonthStart returns local midnight on the first day of the month after
// now, in now's location. December rolls over into January of the next year.
func NextMonthStart(now time.Time) time.Time {
	// time.Date normalizes month 13 into January of year+1.
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

// Expired reports whether the usage window ending at windowEnd is over at now.
// The end instant itself already belongs to the next window.
func Expired(windowEnd, now time.Time) bool {
	return !now.Before(windowEnd)
}

// NewAccount returns a fresh account with an empty collection and a usage
// window that ends at the start of next month.
func NewAccount(identity string, tier types.Tier, now time.Time) *types.Account {
	return &types.Account{
		Identity:       identity,
		Tier:           tier,
		Collection:     []types.Movie{},
		UsageWindowEnd: NextMonthStart(now),
		UsageCount:     0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
