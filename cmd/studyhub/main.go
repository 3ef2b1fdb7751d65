package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyhub/internal/config"
	"github.com/kalambet/studyhub/internal/workspace"
)

var version = "dev"

var noColor bool

// loadConfig is replaced in tests.
var loadConfig = config.Load

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studyhub",
		Short:         "Study spaces, journals, tasks and courses from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSpaceCmd(),
		newJournalCmd(),
		newTaskCmd(),
		newCourseCmd(),
		newProfileCmd(),
		newConfigCmd(),
		newCacheCmd(),
		newServeCmd(),
		newMCPCmd(),
	)
	return root
}

// setupLogging installs the default slog handler at the configured level.
// Unknown levels fall back to info.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// withWorkspace loads config, opens the workspace for the duration of fn and
// closes it afterwards, waiting for in-flight deliveries.
func withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, w *workspace.Workspace) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	w, err := workspace.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			printWarning("closing workspace: %v", err)
		}
	}()
	return fn(cmd.Context(), w)
}
