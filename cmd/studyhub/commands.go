package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyhub/internal/config"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/workspace"
)

// --- space ---

func newSpaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Manage chat spaces",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a space and print its id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				sp, err := w.Spaces.Create(model.NewSpace{Name: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				printSuccess("Created space %q", sp.Name)
				fmt.Fprintln(cmd.OutOrStdout(), sp.ID)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			recent, _ := cmd.Flags().GetBool("recent")
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				load := w.Spaces.List
				if recent {
					load = w.Spaces.Recent
				}
				spaces, err := load()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(spaces) == 0 {
					fmt.Fprintln(out, "No spaces yet.")
					return nil
				}
				for _, sp := range spaces {
					fmt.Fprintf(out, "%s  %s  %d messages  %s\n",
						colorize(colorCyan, sp.ID), sp.Name, len(sp.Messages), shortTime(sp.UpdatedAt))
				}
				return nil
			})
		},
	}
	list.Flags().Bool("recent", false, "order by most recent activity")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a space's conversation and canvases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				sp, ok, err := w.Spaces.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("space %s: %w", args[0], model.ErrNotFound)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, colorize(colorBold, sp.Name))
				for _, m := range sp.Messages {
					who := "you"
					if m.IsAI {
						who = "ai"
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", shortTime(m.Timestamp), who, m.Content)
				}
				canvases, err := w.Canvases.ForSpace(sp.ID)
				if err != nil {
					return err
				}
				for _, c := range canvases {
					fmt.Fprintf(out, "canvas %s  %s\n", c.ID, c.Name)
				}
				return nil
			})
		},
	}

	send := &cobra.Command{
		Use:   "send <id> <message>",
		Short: "Send a message and wait for the AI reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				d, err := w.Send(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "you: %s\n", d.UserMessage().Content)

				if err := d.Wait(ctx); err != nil {
					printError("delivery failed after %s", d.State())
					return err
				}
				if reply, ok := d.Reply(); ok {
					fmt.Fprintf(out, "ai: %s\n", reply.Content)
				}
				return nil
			})
		},
	}

	history := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a space's messages as stored remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				msgs, err := w.RemoteMessages(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(msgs) == 0 {
					fmt.Fprintln(out, "No remote messages.")
					return nil
				}
				for _, m := range msgs {
					who := "you"
					if m.IsAI {
						who = "ai"
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", shortTime(m.CreatedAt), who, m.Content)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a space and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				return reportDelete("space", args[0])(w.Spaces.Delete(args[0]))
			})
		},
	}

	cmd.AddCommand(create, list, show, send, history, del)
	return cmd
}

// reportDelete prints the outcome of a Delete call. Deleting an unknown id
// is not an error.
func reportDelete(kind, id string) func(bool, error) error {
	return func(deleted bool, err error) error {
		if err != nil {
			return err
		}
		if deleted {
			printSuccess("Deleted %s %s", kind, id)
		} else {
			printWarning("No %s with id %s", kind, id)
		}
		return nil
	}
}

// --- journal ---

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Manage journal entries",
	}

	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a journal entry and print its id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _ := cmd.Flags().GetString("content")
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				j, err := w.Journals.Create(model.NewJournal{Title: strings.Join(args, " "), Content: content})
				if err != nil {
					return err
				}
				printSuccess("Created journal %q", j.Title)
				fmt.Fprintln(cmd.OutOrStdout(), j.ID)
				return nil
			})
		},
	}
	create.Flags().String("content", "", "initial content")

	list := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, most recently edited first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				journals, err := w.Journals.List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(journals) == 0 {
					fmt.Fprintln(out, "No journal entries yet.")
					return nil
				}
				for _, j := range journals {
					fmt.Fprintf(out, "%s  %s  %s  %s\n",
						colorize(colorCyan, j.ID), j.Title, shortTime(j.UpdatedAt), clip(plainText(j.Content), 60))
				}
				return nil
			})
		},
	}

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a journal's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u model.JournalUpdate
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				u.Title = &v
			}
			if cmd.Flags().Changed("content") {
				v, _ := cmd.Flags().GetString("content")
				u.Content = &v
			}
			if u.Title == nil && u.Content == nil {
				return fmt.Errorf("one of --title or --content is required")
			}
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				j, err := w.Journals.Update(args[0], u)
				if err != nil {
					return err
				}
				printSuccess("Updated journal %q", j.Title)
				return nil
			})
		},
	}
	edit.Flags().String("title", "", "new title")
	edit.Flags().String("content", "", "new content")

	compose := &cobra.Command{
		Use:   "compose <id>",
		Short: "Append lines from stdin to a journal, autosaving as you type",
		Long: `Append lines from stdin to a journal entry. Edits are saved once typing
pauses for autosave.interval, and once more when input ends.

Example:
  studyhub journal compose 3f2a... < notes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				return composeJournal(cmd, w, args[0])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				return reportDelete("journal", args[0])(w.Journals.Delete(args[0]))
			})
		},
	}

	cmd.AddCommand(create, list, edit, compose, del)
	return cmd
}

func composeJournal(cmd *cobra.Command, w *workspace.Workspace, id string) error {
	j, ok, err := w.Journals.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("journal %s: %w", id, model.ErrNotFound)
	}

	draft, err := w.OpenDraft(j.ID)
	if err != nil {
		return err
	}
	defer draft.Close()

	var (
		mu      sync.Mutex
		saveErr error
		saves   int
	)
	draft.OnSaved = func(model.Journal) {
		mu.Lock()
		saves++
		mu.Unlock()
	}
	draft.OnError = func(err error) {
		mu.Lock()
		saveErr = err
		mu.Unlock()
	}

	content := j.Content
	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		if content != "" {
			content += "\n"
		}
		content += sc.Text()
		if err := draft.Edit(model.JournalUpdate{Content: model.Ptr(content)}); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	draft.Save()

	mu.Lock()
	defer mu.Unlock()
	if saveErr != nil {
		return saveErr
	}
	printSuccess("Saved journal %q (%d saves)", j.Title, saves)
	return nil
}

// --- task ---

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task and print its id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("description")
			dueRaw, _ := cmd.Flags().GetString("due")
			p := model.NewTask{Title: strings.Join(args, " "), Description: desc}
			if dueRaw != "" {
				due, err := parseDue(dueRaw)
				if err != nil {
					return err
				}
				p.DueDate = &due
			}
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				t, err := w.Tasks.Create(p)
				if err != nil {
					return err
				}
				printSuccess("Added task %q", t.Title)
				fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				return nil
			})
		},
	}
	add.Flags().String("description", "", "task description")
	add.Flags().String("due", "", "due date (YYYY-MM-DD or RFC 3339)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, _ := cmd.Flags().GetBool("pending")
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				load := w.Tasks.List
				if pending {
					load = w.Tasks.Pending
				}
				tasks, err := load()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No tasks.")
					return nil
				}
				for _, t := range tasks {
					box := "[ ]"
					if t.Completed {
						box = colorize(colorGreen, "[x]")
					}
					due := ""
					if t.DueDate != nil {
						due = "  due " + shortTime(*t.DueDate)
					}
					fmt.Fprintf(out, "%s %s  %s%s\n", box, colorize(colorCyan, t.ID), t.Title, due)
				}
				return nil
			})
		},
	}
	list.Flags().Bool("pending", false, "only incomplete tasks")

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				t, err := w.Tasks.Toggle(args[0])
				if err != nil {
					return err
				}
				state := "not done"
				if t.Completed {
					state = "done"
				}
				printSuccess("Task %q is %s", t.Title, state)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				return reportDelete("task", args[0])(w.Tasks.Delete(args[0]))
			})
		},
	}

	cmd.AddCommand(add, list, toggle, del)
	return cmd
}

func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("invalid --due: use YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// --- config ---

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			for _, k := range config.ShowAll(cfg) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if err := config.SetKey(key, value); err != nil {
				return err
			}

			printSuccess("Set %s = %s", key, value)
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
