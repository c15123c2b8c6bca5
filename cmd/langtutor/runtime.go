package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/langtutor/internal/app"
	"github.com/felixgeelhaar/langtutor/internal/config"
)

// openApp loads configuration, sets up logging and builds the application.
// The returned function releases everything opened here.
func openApp(stderrLevel slog.Level) (*app.App, func(), error) {
	dir, err := config.EnsureDir()
	if err != nil {
		return nil, nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := config.LoadLocalConfigFrom(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logFile, err := setupLogging(dir, parseLogLevel(cfg.LogLevel), stderrLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	a, err := app.New(context.Background(), app.Options{
		Config: cfg,
		Dir:    dir,
		Logger: slog.Default(),
	})
	if err != nil {
		logFile.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			slog.Error("close application", "error", err)
		}
		logFile.Close()
	}
	return a, cleanup, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
