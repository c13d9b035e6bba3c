// Package commands implements ledgerctl, the operator CLI of the ledger.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dinero-ledger/internal/config"
	"github.com/dinero-ledger/internal/engine/components"
	"github.com/dinero-ledger/internal/logger"
)

// session is an opened engine plus the config it was built from.
type session struct {
	cfg    *config.Config
	engine *components.Engine
	close  func(context.Context)
}

type sessionOpener func(ctx context.Context, cfg *config.Config, opts components.BackendOptions) (*session, error)

type app struct {
	configName string
	loadConfig func(name string) (*config.Config, error)
	open       sessionOpener
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{
		loadConfig: config.LoadConfig,
		open:       openSession,
	})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a double-entry ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.configName, "config", "ledgerctl", "config file name without the .env suffix")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newSeedChartCommand(a),
		newTrialBalanceCommand(a),
		newSnapshotCommand(a),
	)

	return rootCmd
}

// session loads the config and opens the engine for one command run.
func (a *app) session(ctx context.Context, opts components.BackendOptions) (*session, error) {
	cfg, err := a.loadConfig(a.configName)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return a.open(ctx, cfg, opts)
}

func openSession(ctx context.Context, cfg *config.Config, opts components.BackendOptions) (*session, error) {
	log := logger.NewLoggerTo(os.Stderr, cfg)
	backend, err := components.OpenBackend(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		engine: components.NewEngine(backend.Store, backend.Snapshots, log),
		close:  backend.Close,
	}, nil
}
