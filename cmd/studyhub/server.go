package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/studyhub/internal/api"
	"github.com/kalambet/studyhub/internal/ollama"
	"github.com/kalambet/studyhub/internal/workspace"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the AI-response endpoint backed by the local Ollama tutor",
		Long: `Serve POST /v1/respond and GET /health on 127.0.0.1:<server.port>.
Point ai.endpoint_url at this server to chat with the local model. When
STUDYHUB_AI_API_KEY is set, requests must carry it as a bearer token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}
}

func runServer(cmd *cobra.Command) error {
	fmt.Fprintf(os.Stderr, "studyhub version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)
	ctx := cmd.Context()

	printStep("Checking Ollama at %s", cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollama.New(cfg.Ollama.BaseURL), cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	// The workspace supplies the learner profile for the tutor's prompt.
	w, err := workspace.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing workspace: %v\n", err)
		}
	}()

	handler := api.NewResponderHandler(workspace.NewTutor(cfg, w.Summary), cfg.AI.APIKey)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "studyhub listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workspace to MCP clients over stdio",
		Long: `Serve spaces, journals and tasks as MCP tools, and the learner profile
as the user://profile resource, on stdin/stdout. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ctx context.Context, w *workspace.Workspace) error {
				srv := api.NewMCPServer(api.MCPDeps{
					Spaces:   w.Spaces,
					Journals: w.Journals,
					Tasks:    w.Tasks,
					Profile:  w.Profile,
					Send:     w.Send,
				}, version)

				slog.Info("MCP server started (stdio transport)")
				err := server.NewStdioServer(srv).Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("MCP stdio server: %w", err)
				}
				return nil
			})
		},
	}
}
