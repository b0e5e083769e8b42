package db

import (
	"context"
	"sync"

	"moviesvc/internal/types"
)

// MemoryAccountStore keeps accounts in process memory. Accounts are copied
// on the way in and out, so callers see store snapshots just as they would
// with a database.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*types.Account
}

// NewMemoryAccountStore returns an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*types.Account)}
}

func (s *MemoryAccountStore) FindByIdentity(_ context.Context, identity string) (*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[identity]
	if !ok {
		return nil, errAccountNotFound(identity)
	}
	return a.Clone(), nil
}

func (s *MemoryAccountStore) Save(ctx context.Context, account *types.Account) error {
	if err := ctx.Err(); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save account", err)
	}
	c := account.Clone()
	if c.Collection == nil {
		c.Collection = []types.Movie{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[c.Identity] = c
	return nil
}

// Ping always succeeds.
func (s *MemoryAccountStore) Ping(context.Context) error { return nil }

// Len returns the number of stored accounts.
func (s *MemoryAccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
