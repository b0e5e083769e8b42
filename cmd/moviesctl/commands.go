package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moviesvc/internal/config"
	"moviesvc/internal/db"
	"moviesvc/internal/types"
)

var errMemoryStore = errors.New("the memory store lives inside the API process; set STORE_DRIVER to postgres or sqlite")

type cli struct {
	loadConfig func() (*config.Config, error)
	now        func() time.Time
}

// openStore loads configuration and connects the configured store.
func (c *cli) openStore(ctx context.Context) (*db.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver == db.DriverMemory {
		return nil, errMemoryStore
	}
	return db.Open(ctx, cfg.Store)
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "moviesctl",
		Short:         "Operate the movie collection account store",
		Long:          "moviesctl applies schema migrations, seeds the default accounts, and inspects or edits accounts in the store named by STORE_DRIVER.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newAccountCmd(c),
	)

	return rootCmd
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", store.Driver)
			return nil
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default accounts that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			created, err := db.SeedDefaultAccounts(cmd.Context(), store.Accounts, c.now())
			if err != nil {
				return err
			}
			if len(created) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "default accounts already present")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created: %s\n", strings.Join(created, ", "))
			return nil
		},
	}
}

func newAccountCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect and edit accounts",
	}

	cmd.AddCommand(
		newAccountShowCmd(c),
		newAccountSetTierCmd(c),
	)

	return cmd
}

func newAccountShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity>",
		Short: "Print an account as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			account, err := store.Accounts.FindByIdentity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, account)
		},
	}
}

func newAccountSetTierCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tier <identity> <tier>",
		Short: "Change an account's tier (basic or premium)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := types.ParseTier(args[1])
			if !ok || args[1] == "" {
				return fmt.Errorf("unknown tier %q", args[1])
			}

			store, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			account, err := store.Accounts.FindByIdentity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			account.Tier = tier
			account.UpdatedAt = c.now()
			if err := store.Accounts.Save(cmd.Context(), account); err != nil {
				return err
			}
			return writeJSON(cmd, account)
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
