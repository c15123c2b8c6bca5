package main

import (
	"log/slog"

	mcpserver "github.com/felixgeelhaar/langtutor/internal/mcp"
)

// cmdMCP starts the MCP server on stdio. Logs go to the log file and
// stderr only, stdout carries the protocol.
func cmdMCP() error {
	a, cleanup, err := openApp(slog.LevelInfo)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		App:     a,
		Version: Version,
	})

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("serving MCP on stdio", "version", Version)
	return mcpSrv.ServeStdio(ctx)
}
