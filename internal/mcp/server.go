package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/autodoc/internal/engine"
)

// ServerName is reported to MCP clients.
const ServerName = "autodoc-mcp"

// Options configures the MCP server.
type Options struct {
	// Root resolves relative paths in tool arguments and relativises paths
	// in responses.
	Root string
	// Settings supplies tag markers and the default tag mode.
	Settings engine.SettingsProvider
	// FormatFor maps a language to its docstring format. Optional.
	FormatFor func(language string) string
	Logger    logrus.FieldLogger
	Version   string
}

// Server exposes the pending-documentation ledger over MCP stdio.
type Server struct {
	mcp    *server.MCPServer
	logger logrus.FieldLogger
}

// NewServer creates a server with every autodoc tool registered.
func NewServer(tracker Tracker, opts Options) (*Server, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings provider is required")
	}
	if opts.Logger == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		opts.Logger = quiet
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := server.NewMCPServer(
		ServerName,
		opts.Version,
		server.WithToolCapabilities(true),
	)

	deps := toolDeps{
		tracker:   tracker,
		settings:  opts.Settings,
		formatFor: opts.FormatFor,
		root:      opts.Root,
	}
	AddPendingTool(s, deps)
	AddAcknowledgeTool(s, deps)
	AddCoverageTool(s, deps)

	return &Server{mcp: s, logger: opts.Logger}, nil
}

// Serve runs the server on stdio until the client disconnects, ctx is
// cancelled, or the process receives SIGINT or SIGTERM.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
