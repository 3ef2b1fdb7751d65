package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyhub/internal/storage"
	"github.com/kalambet/studyhub/internal/workspace"
)

// --- cache ---

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the local cache",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List cached families with their size and last write",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				entries, err := w.Store.Entries()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%-18s %8d bytes  %s\n", e.Key, len(e.Value), shortTime(e.UpdatedAt))
				}
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset [family...]",
		Short: "Drop cached families so they read as empty",
		Long: `Drop cached families so they read as empty. Families are cache keys
such as spaces, journals or user-tasks; see "studyhub cache ls".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) > 0) {
				return errors.New("name families to reset or pass --all")
			}
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				keys := args
				if all {
					var err error
					if keys, err = w.Store.Keys(); err != nil {
						return err
					}
				}
				for _, k := range keys {
					err := w.Store.Delete(k)
					switch {
					case errors.Is(err, storage.ErrNotFound):
						printWarning("Nothing cached under %s", k)
					case err != nil:
						return fmt.Errorf("resetting %s: %w", k, err)
					default:
						printSuccess("Reset %s", k)
					}
				}
				return nil
			})
		},
	}
	reset.Flags().Bool("all", false, "reset every family")

	cmd.AddCommand(ls, reset)
	return cmd
}
