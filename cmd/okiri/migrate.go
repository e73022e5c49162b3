// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/okiri/okiri/internal/auth/postgres"
	"github.com/okiri/okiri/internal/auth/sqlite"
	"github.com/okiri/okiri/internal/config"
	"github.com/okiri/okiri/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or inspect schema migrations for the sqlite and postgres store
drivers. The memory and redis drivers have no schema.`,
	}
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateForceCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			switch cfg.Store.Driver {
			case store.DriverSQLite:
				db, err := sqlite.Open(cmd.Context(), cfg.Store.DSN)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				version, err := sqlite.SchemaVersion(cmd.Context(), db)
				if err != nil {
					return err
				}
				cmd.Printf("Schema at version %d.\n", version)
				return nil
			case store.DriverPostgres:
				return withMigrator(cfg, func(m *postgres.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					version, _, err := m.Version()
					if err != nil {
						return err
					}
					cmd.Printf("Schema at version %d (%s).\n", version, postgres.MigrationName(version))
					return nil
				})
			default:
				cmd.Printf("The %s driver has no schema to migrate.\n", cfg.Store.Driver)
				return nil
			}
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}
			return withMigrator(cfg, func(m *postgres.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				cmd.Printf("Current version: %d", version)
				if dirty {
					cmd.Print(" (dirty)")
				}
				cmd.Println()
				if len(pending) == 0 {
					cmd.Println("No pending migrations.")
					return nil
				}
				names := make([]string, 0, len(pending))
				for _, v := range pending {
					names = append(names, postgres.MigrationName(v))
				}
				cmd.Printf("Pending: %s\n", strings.Join(names, ", "))
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Drop the auth schema and all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("down deletes every account; rerun with --yes")
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}
			return withMigrator(cfg, func(m *postgres.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Schema removed.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive rollback")
	return cmd
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long:  `Recover from a dirty schema after repairing the database by hand.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}
			return withMigrator(cfg, func(m *postgres.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d.\n", version)
				return nil
			})
		},
	}
}

func withMigrator(cfg config.Config, fn func(*postgres.Migrator) error) error {
	m, err := postgres.NewMigrator(cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(m)
}

func requirePostgres(cfg config.Config) error {
	if cfg.Store.Driver != store.DriverPostgres {
		return oops.Code("UNSUPPORTED_DRIVER").
			With("driver", cfg.Store.Driver).
			Errorf("this command needs the postgres driver, not %s", cfg.Store.Driver)
	}
	return nil
}

// parseForceVersion reads a leading integer from s. Negative values pass
// through here and are rejected by Migrator.Force.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
