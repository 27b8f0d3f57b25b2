package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nixpig/jobctl/internal/config"
	"github.com/nixpig/jobctl/internal/daemon"
	"github.com/nixpig/jobctl/internal/liveness"
	"github.com/nixpig/jobctl/internal/logging"
	"github.com/nixpig/jobctl/internal/registry"
	"github.com/nixpig/jobctl/internal/runner"
)

// runServer serves until ctx is cancelled or a client sends Kill.
func runServer(ctx context.Context, cfg config.Config) error {
	logger, closer, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closer.Close()

	checker := liveness.NewChecker()

	srv := daemon.NewServer(
		daemon.Config{SocketPath: cfg.SocketPath},
		registry.New(checker),
		runner.New(cfg.Shell, cfg.JobLogDir, cfg.Logging(), logger),
		checker,
		logger,
	)

	if err := srv.Start(ctx); err != nil {
		switch {
		case errors.Is(err, daemon.ErrAlreadyRunning):
			logger.Info("another instance running", "socket", cfg.SocketPath, "err", err)
			return err
		case errors.Is(err, context.Canceled):
			logger.Info("server stopped")
			return nil
		default:
			logger.Error("server failed", "err", err)
			return err
		}
	}

	return nil
}
