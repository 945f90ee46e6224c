package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/autodoc/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the pending-documentation ledger over MCP",
	Long: `Start a Model Context Protocol server on stdio. The server tracks source
files like "autodoc watch" does and exposes tools to list pending
functions, acknowledge rewritten docstrings, and report coverage.

Logs are written to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	proj, err := loadProject(rootDir, os.Stderr)
	if err != nil {
		return err
	}
	sess, err := proj.openSession(sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	unsubscribe := sess.engine.Subscribe(ledgerLogger(proj))
	defer unsubscribe()

	coord, err := startTracking(ctx, proj, sess)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(sess.engine, mcp.Options{
		Root:      proj.root,
		Settings:  sess.settings,
		FormatFor: proj.cfg.FormatFor,
		Logger:    proj.logger,
		Version:   Version,
	})
	if err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- coord.Start(ctx)
	}()
	go reloadOnHangup(ctx, proj, sess)

	serveErr := server.Serve(ctx)
	cancel()
	if err := <-watchErr; err != nil && !errors.Is(err, context.Canceled) {
		proj.logger.WithError(err).Warn("watcher stopped with error")
	}
	if errors.Is(serveErr, context.Canceled) {
		return nil
	}
	return serveErr
}
