// Package quota enforces the per-tier monthly allowance on collection adds.
package quota

import (
	"moviesvc/internal/config"
	"moviesvc/internal/types"
)

// Policy is the admission rule for one tier: either unlimited, or a fixed
// number of adds per monthly window.
type Policy struct {
	unlimited bool
	limit     int
}

// Unlimited returns a policy that never denies.
func Unlimited() Policy { return Policy{unlimited: true} }

// Limit returns a policy that denies once n adds have been counted in the
// current window.
func Limit(n int) Policy { return Policy{limit: n} }

// IsUnlimited reports whether the policy never denies.
func (p Policy) IsUnlimited() bool { return p.unlimited }

// Max returns the monthly limit. It is meaningless for unlimited policies.
func (p Policy) Max() int { return p.limit }

// Admits reports whether another add is allowed at the given usage count.
func (p Policy) Admits(used int) bool {
	return p.unlimited || used < p.limit
}

// Registry maps tiers to their policies. Unknown tiers get the fallback
// policy, which is the most restrictive configured one (basic).
type Registry struct {
	policies     map[types.Tier]Policy
	fallbackTier types.Tier
}

// NewRegistry builds the tier policy table from configuration.
func NewRegistry(cfg config.QuotaConfig) *Registry {
	basic := Limit(cfg.BasicMonthlyLimit)
	return &Registry{
		policies: map[types.Tier]Policy{
			types.TierBasic:   basic,
			types.TierPremium: Unlimited(),
		},
		fallbackTier: types.TierBasic,
	}
}

// PolicyFor returns the policy for tier, or the fallback for unknown tiers.
func (r *Registry) PolicyFor(tier types.Tier) Policy {
	_, p := r.Resolve(tier)
	return p
}

// Resolve returns the tier whose policy applies to tier together with that
// policy. Unknown tiers resolve to the fallback tier.
func (r *Registry) Resolve(tier types.Tier) (types.Tier, Policy) {
	if p, ok := r.policies[tier]; ok {
		return tier, p
	}
	return r.fallbackTier, r.policies[r.fallbackTier]
}

// Has reports whether tier has an explicitly registered policy.
func (r *Registry) Has(tier types.Tier) bool {
	_, ok := r.policies[tier]
	return ok
}
