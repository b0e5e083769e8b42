package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moviesvc/internal/config"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Store bundles the account store selected by configuration with its
// health probe and cleanup.
type Store struct {
	Driver   string
	Accounts AccountStore
	Probe    *StoreProbe

	migrate func(ctx context.Context) error
	closers []func() error
}

// Open connects the store named by cfg.Driver. Migrations are not applied;
// call Migrate for that.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return openPostgres(ctx, cfg)
	case DriverSQLite:
		return openSQLite(ctx, cfg)
	case DriverMemory:
		mem := NewMemoryAccountStore()
		return &Store{
			Driver:   DriverMemory,
			Accounts: mem,
			Probe:    NewStoreProbe(DriverMemory, mem),
			migrate:  func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := NewPostgresAccountRepository(pool)
	dsn := cfg.URL.Unmask()

	return &Store{
		Driver:   DriverPostgres,
		Accounts: repo,
		Probe:    NewStoreProbe(DriverPostgres, repo),
		// goose runs over database/sql, so migrations get their own short-lived
		// connection through pgx/v5/stdlib.
		migrate: func(ctx context.Context) error {
			conn, err := OpenPostgresSQL(dsn)
			if err != nil {
				return err
			}
			defer conn.Close()
			return RunMigrations(ctx, conn, DialectPostgres)
		},
		closers: []func() error{func() error { pool.Close(); return nil }},
	}, nil
}

func openSQLite(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	conn, err := OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	repo := NewSQLiteAccountRepository(conn)

	return &Store{
		Driver:   DriverSQLite,
		Accounts: repo,
		Probe:    NewStoreProbe(DriverSQLite, repo),
		migrate: func(ctx context.Context) error {
			return RunMigrations(ctx, conn, DialectSQLite)
		},
		closers: []func() error{conn.Close},
	}, nil
}

// Migrate applies pending schema migrations. It is a no-op for the memory
// driver.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("migrating %s store: %w", s.Driver, err)
	}
	return nil
}

// Close releases the store's connections.
func (s *Store) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
