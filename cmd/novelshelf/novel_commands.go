package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newListCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List novels in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			novels, err := store.ListNovels(ctx)
			if err != nil {
				return err
			}
			if len(novels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}

			rows := make([][]string, 0, len(novels))
			for _, n := range novels {
				count, err := store.CountChapters(ctx, n.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					strconv.FormatInt(n.ID, 10),
					n.Title,
					n.Author,
					n.Language,
					strconv.Itoa(count),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Author", "Lang", "Chapters"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newChaptersCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <novel-id>",
		Short: "List a novel's chapters in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if _, err := store.GetNovel(ctx, novelID); err != nil {
				return err
			}

			chapters, err := store.ChaptersByNovel(ctx, novelID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(chapters))
			for _, ch := range chapters {
				rows = append(rows, []string{
					strconv.FormatInt(ch.ID, 10),
					strconv.Itoa(ch.SequenceNumber),
					ch.DisplayTitle,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Seq", "Title"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newShowCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <chapter-id>",
		Short: "Print a chapter's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapterID, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			variant, err := store.GetVariant(cmd.Context(), chapterID)
			if err != nil {
				return err
			}
			if variant == nil {
				return fmt.Errorf("chapter %d has no content", chapterID)
			}

			if variant.Title != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", variant.Title)
			}
			fmt.Fprintln(cmd.OutOrStdout(), variant.Content)
			return nil
		},
	}
}

func newRemoveCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <novel-id>",
		Short: "Remove a novel and all its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID(args[0])
			if err != nil {
				return err
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

			removed, err := store.DeleteNovel(cmd.Context(), novelID)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("novel %d not found", novelID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed novel %d\n", novelID)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
