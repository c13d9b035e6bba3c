package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dinero-ledger/internal/platform/persistence"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 {
				return errors.New("--steps must be greater than 0")
			}
			cfg, err := a.loadConfig(a.configName)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := persistence.RollbackMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := a.loadConfig(a.configName)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := a.loadConfig(a.configName)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				version, dirty, err := persistence.MigrationVersion(cfg.Postgres.URL, cfg.Postgres.MigrationsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}
