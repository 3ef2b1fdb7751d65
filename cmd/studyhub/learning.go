package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/workspace"
)

// --- course ---

func newCourseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Browse the course catalog and track progress",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				courses, err := w.Courses.List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(courses) == 0 {
					fmt.Fprintln(out, "Catalog is empty. Load one with: studyhub course seed <file>")
					return nil
				}
				for _, c := range courses {
					fmt.Fprintf(out, "%s  %s  [%s]  %d modules, %d min\n",
						colorize(colorCyan, c.ID), c.Title, c.Domain, len(c.Modules), c.Duration)
				}
				return nil
			})
		},
	}

	seed := &cobra.Command{
		Use:   "seed <file|->",
		Short: "Replace the course catalog from a JSON file",
		Long: `Replace the course catalog with the JSON array in file ("-" reads stdin).
Each course has id, title, description, domain, duration and modules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			catalog, err := codec.Courses.Decode(string(data))
			if err != nil {
				return fmt.Errorf("parsing catalog: %w", err)
			}
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				if err := w.Courses.Replace(catalog); err != nil {
					return err
				}
				printSuccess("Loaded %d courses", len(catalog))
				return nil
			})
		},
	}

	enroll := &cobra.Command{
		Use:   "enroll <course-id>",
		Short: "Enroll the signed-in user in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				e, err := w.Enrollments.Enroll(w.UserID, args[0])
				if err != nil {
					return err
				}
				printSuccess("Enrolled in %s (%d%% complete)", e.CourseID, e.Progress)
				return nil
			})
		},
	}

	complete := &cobra.Command{
		Use:   "complete <course-id> <module-id>",
		Short: "Mark a module completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			undo, _ := cmd.Flags().GetBool("undo")
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				e, err := w.Enrollments.SetModuleCompleted(w.UserID, args[0], args[1], !undo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%%\n", e.CourseID, e.Progress)
				return nil
			})
		},
	}
	complete.Flags().Bool("undo", false, "mark the module not completed")

	prog := &cobra.Command{
		Use:   "progress",
		Short: "Show progress in enrolled courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				enrolled, err := w.Enrollments.ForUser(w.UserID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(enrolled) == 0 {
					fmt.Fprintln(out, "Not enrolled in any course.")
					return nil
				}
				for _, e := range enrolled {
					title := e.CourseID
					total := 0
					if c, ok, err := w.Courses.Get(e.CourseID); err != nil {
						return err
					} else if ok {
						title, total = c.Title, len(c.Modules)
					}
					fmt.Fprintf(out, "%s  %3d%%  %d/%d modules  last active %s\n",
						title, e.Progress, len(e.CompletedModules), total, shortTime(e.LastAccessedAt))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, seed, enroll, complete, prog)
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// --- profile ---

// profileView is the JSON printed by profile show.
type profileView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
	Avatar    string   `json:"avatar,omitempty"`
	Spaces    int      `json:"spacesCount"`
	Journals  int      `json:"journalsCount"`
	Courses   int      `json:"coursesCount"`
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage user profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				p, ok, err := w.Profile.Get()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "No profile yet. Create one with: studyhub profile set name <name>")
					return nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(profileView{
					ID:        p.ID,
					Name:      p.Name,
					Email:     p.Email,
					Bio:       p.Bio,
					Interests: p.Interests,
					Avatar:    p.Avatar,
					Spaces:    p.Counts.Spaces,
					Journals:  p.Counts.Journals,
					Courses:   p.Counts.Courses,
				})
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set a profile field (name, email, bio, avatar, interests)",
		Long: `Set a profile field. Interests are comma-separated.

Examples:
  studyhub profile set name "Ada Lovelace"
  studyhub profile set interests "math, poetry"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := args[0], args[1]
			u, err := profileUpdate(field, value)
			if err != nil {
				return err
			}
			return withWorkspace(cmd, func(_ context.Context, w *workspace.Workspace) error {
				if _, err := w.Profile.Save(w.UserID, u); err != nil {
					return err
				}
				w.Summary.Invalidate()
				printSuccess("Set %s = %s", field, value)
				return nil
			})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func profileUpdate(field, value string) (model.ProfileUpdate, error) {
	var u model.ProfileUpdate
	switch field {
	case "name":
		u.Name = &value
	case "email":
		u.Email = &value
	case "bio":
		u.Bio = &value
	case "avatar":
		u.Avatar = &value
	case "interests":
		u.Interests = []string{}
		for _, s := range strings.Split(value, ",") {
			u.Interests = append(u.Interests, strings.TrimSpace(s))
		}
	default:
		return u, fmt.Errorf("unknown profile field %q (want name, email, bio, avatar or interests)", field)
	}
	return u, nil
}
