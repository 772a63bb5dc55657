package main

import (
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"novelshelf/internal/catalog"
	"novelshelf/internal/config"
	"novelshelf/internal/logging"
)

// appContext carries lazily initialized shared state into subcommands.
type appContext struct {
	configFlag *string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	var configFlag string

	app := &appContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "novelshelf",
		Short:         "Personal novel library: import, read, back up",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newImportCommand(app))
	rootCmd.AddCommand(newImportTextCommand(app))
	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newChaptersCommand(app))
	rootCmd.AddCommand(newShowCommand(app))
	rootCmd.AddCommand(newRemoveCommand(app))
	rootCmd.AddCommand(newProgressCommand(app))
	rootCmd.AddCommand(newBackupCommand(app))

	return rootCmd
}

func (a *appContext) ensureConfig() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(*a.configFlag)
	if err != nil {
		return nil, err
	}
	a.cfg = &cfg
	return a.cfg, nil
}

func (a *appContext) ensureLogger() (*slog.Logger, error) {
	if a.logger != nil {
		return a.logger, nil
	}
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	a.logger = logger
	return logger, nil
}

// openStore opens the catalog database, creating directories when needed.
func (a *appContext) openStore() (*catalog.Store, error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return catalog.Open(cfg.CatalogPath())
}

// acquireLock serializes catalog mutation across concurrent CLI
// invocations so sequence allocation never interleaves. The returned
// release function must be called when the mutation finishes.
func (a *appContext) acquireLock() (func(), error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another novelshelf process is modifying the catalog (lock: %s)", cfg.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}
