package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"novelshelf/internal/catalog"
	"novelshelf/internal/epub"
	"novelshelf/internal/importer"
)

func newImportCommand(app *appContext) *cobra.Command {
	var (
		novelID int64
		title   string
		author  string
	)

	cmd := &cobra.Command{
		Use:   "import <file.epub>",
		Short: "Import an EPUB archive as chapters of a novel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, app, args[0], novelID, title, author, importEPUB)
		},
	}

	cmd.Flags().Int64Var(&novelID, "novel", 0, "Existing novel ID to append chapters to")
	cmd.Flags().StringVar(&title, "title", "", "Novel title (fallback when the archive has none)")
	cmd.Flags().StringVar(&author, "author", "", "Author (fallback when the archive has none)")

	return cmd
}

func newImportTextCommand(app *appContext) *cobra.Command {
	var (
		novelID int64
		title   string
		author  string
	)

	cmd := &cobra.Command{
		Use:   "import-text <file.txt>",
		Short: "Import a plain-text file as a single chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, app, args[0], novelID, title, author, importPlainText)
		},
	}

	cmd.Flags().Int64Var(&novelID, "novel", 0, "Existing novel ID to append the chapter to")
	cmd.Flags().StringVar(&title, "title", "", "Novel title (defaults to the file name)")
	cmd.Flags().StringVar(&author, "author", "", "Author")

	return cmd
}

type importFunc func(cmd *cobra.Command, path string, data []byte, store *catalog.Store, opts importer.Options) (*importer.Result, error)

func runImport(cmd *cobra.Command, app *appContext, path string, novelID int64, title, author string, run importFunc) error {
	cfg, err := app.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := app.ensureLogger()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

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

	ctx := cmd.Context()

	fallbackTitle := title
	if fallbackTitle == "" {
		fallbackTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	created := false
	if novelID == 0 {
		novel, err := store.CreateNovel(ctx, fallbackTitle, author, cfg.Language, "import")
		if err != nil {
			return err
		}
		novelID = novel.ID
		created = true
	} else if _, err := store.GetNovel(ctx, novelID); err != nil {
		return err
	}

	opts := importer.Options{
		NovelID:        novelID,
		FallbackTitle:  fallbackTitle,
		FallbackAuthor: author,
		Language:       cfg.Language,
		Logger:         logger,
	}

	result, err := run(cmd, path, data, store, opts)
	if err != nil {
		if created {
			// Remove the novel we just created so a failed import leaves
			// no empty catalog entry behind, unless chapters were already
			// committed; then the persistence error reports the count.
			var perr *importer.PersistenceError
			if !errors.As(err, &perr) || perr.Committed == 0 {
				_, _ = store.DeleteNovel(ctx, novelID)
			}
		}
		return describeImportError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chapters into novel %d (%s)\n",
		len(result.Chapters), novelID, result.NovelTitle)
	return nil
}

func importEPUB(cmd *cobra.Command, _ string, data []byte, store *catalog.Store, opts importer.Options) (*importer.Result, error) {
	opts.Progress = newProgressReporter(cmd)
	return importer.ImportEPUB(cmd.Context(), data, store, opts)
}

func importPlainText(cmd *cobra.Command, path string, data []byte, store *catalog.Store, opts importer.Options) (*importer.Result, error) {
	return importer.ImportText(cmd.Context(), path, data, store, opts)
}

// newProgressReporter renders a progress bar when stdout is a terminal.
func newProgressReporter(cmd *cobra.Command) importer.ProgressFunc {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}

	var bar *progressbar.ProgressBar
	return func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("importing"),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(processed)
	}
}

// describeImportError maps the pipeline error taxonomy onto the distinct
// user-facing messages each case calls for.
func describeImportError(err error) error {
	var perr *importer.PersistenceError
	switch {
	case errors.Is(err, epub.ErrArchiveFormat):
		return fmt.Errorf("the file is not a valid EPUB archive: %w", err)
	case errors.Is(err, epub.ErrInvalidContainer):
		return fmt.Errorf("the archive has no usable package descriptor: %w", err)
	case errors.Is(err, epub.ErrNoReadableContent):
		return fmt.Errorf("no readable content was found in the archive: %w", err)
	case errors.Is(err, importer.ErrNoImportableChapters):
		return fmt.Errorf("content was found but every item was filtered out: %w", err)
	case errors.As(err, &perr):
		return fmt.Errorf("import aborted, %d chapters were committed: %w", perr.Committed, err)
	default:
		return err
	}
}
