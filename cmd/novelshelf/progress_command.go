package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"novelshelf/internal/catalog"
)

func newProgressCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Track reading progress per device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newProgressSetCommand(app))
	cmd.AddCommand(newProgressShowCommand(app))
	return cmd
}

func newProgressSetCommand(app *appContext) *cobra.Command {
	var position float64

	cmd := &cobra.Command{
		Use:   "set <novel-id> <chapter-id>",
		Short: "Record the current reading position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			novelID, err := parseID(args[0])
			if err != nil {
				return err
			}
			chapterID, err := parseID(args[1])
			if err != nil {
				return err
			}

			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			deviceID, err := catalog.DeviceID(cfg.StateDir)
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.SetProgress(cmd.Context(), catalog.ReadingProgress{
				NovelID:   novelID,
				DeviceID:  deviceID,
				ChapterID: chapterID,
				Position:  position,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress saved: novel %d, chapter %d\n", novelID, chapterID)
			return nil
		},
	}

	cmd.Flags().Float64Var(&position, "position", 0, "Fractional position within the chapter (0..1)")
	return cmd
}

func newProgressShowCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <novel-id>",
		Short: "Show reading positions for a novel",
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

			progress, err := store.ProgressByNovel(cmd.Context(), novelID)
			if err != nil {
				return err
			}
			if len(progress) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no progress recorded")
				return nil
			}

			rows := make([][]string, 0, len(progress))
			for _, p := range progress {
				rows = append(rows, []string{
					p.DeviceID,
					strconv.FormatInt(p.ChapterID, 10),
					strconv.FormatFloat(p.Position, 'f', 2, 64),
					p.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Device", "Chapter", "Position", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
