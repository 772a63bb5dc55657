package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"novelshelf/internal/backup"
)

func newBackupCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the catalog as a zip of JSON documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBackupExportCommand(app))
	cmd.AddCommand(newBackupImportCommand(app))
	return cmd
}

func newBackupExportCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.zip>",
		Short: "Write the whole catalog to a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			defer f.Close()

			if err := backup.Export(cmd.Context(), store, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
			return nil
		},
	}
}

func newBackupImportCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.zip>",
		Short: "Import novels from a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := app.acquireLock()
			if err != nil {
				return err
			}
			defer release()

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat backup file: %w", err)
			}

			imported, err := backup.Import(cmd.Context(), store, f, info.Size())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d novels\n", imported)
			return nil
		},
	}
}
