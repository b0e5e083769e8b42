package types

import "time"

// Tier classifies an account and selects its quota policy.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// AllTiers lists every tier the service knows about. Adding a tier here
// without registering a quota policy for it fails the quota package tests.
var AllTiers = []Tier{TierBasic, TierPremium}

// ParseTier converts a raw tier name into a Tier. The empty string maps to
// TierBasic, mirroring the store default for accounts created without a role.
func ParseTier(s string) (Tier, bool) {
	if s == "" {
		return TierBasic, true
	}
	for _, t := range AllTiers {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Movie is a sanitized catalog record stored in an account's collection.
// Every field is optional; absent fields are omitted from JSON.
type Movie struct {
	Title    *string    `json:"title,omitempty"`
	Genre    *string    `json:"genre,omitempty"`
	Director *string    `json:"director,omitempty"`
	Released *time.Time `json:"released,omitempty"`
}

// Account is the persisted per-subscriber record: the collection plus the
// monthly usage counter and the instant at which that counter expires.
type Account struct {
	Identity       string    `json:"identity"`
	Tier           Tier      `json:"tier"`
	Collection     []Movie   `json:"collection"`
	UsageWindowEnd time.Time `json:"usage_window_end"`
	UsageCount     int       `json:"usage_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the account so callers can mutate it without
// affecting a stored snapshot.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Collection = make([]Movie, len(a.Collection))
	for i, m := range a.Collection {
		c.Collection[i] = m.clone()
	}
	return &c
}

func (m Movie) clone() Movie {
	out := Movie{}
	if m.Title != nil {
		v := *m.Title
		out.Title = &v
	}
	if m.Genre != nil {
		v := *m.Genre
		out.Genre = &v
	}
	if m.Director != nil {
		v := *m.Director
		out.Director = &v
	}
	if m.Released != nil {
		v := *m.Released
		out.Released = &v
	}
	return out
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }
