// Package cli provides initialization helpers shared by cmd/ledger and
// cmd/ledger-agent.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GillJordan/Home-expense/internal/config"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FILE and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		File:      cfg.LogFile,
	})
	log.SetDefault(logger)
	return logger.WithComponent(component)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the configuration and runs validate over it.
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenCache opens the agent's SQLite-backed cache store.
func OpenCache(path string) (*storage.SQLiteKV, error) {
	kv, err := storage.NewSQLiteKV(path)
	if err != nil {
		return nil, fmt.Errorf("open local cache %s: %w", path, err)
	}
	return kv, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// cleanup runs once, bounded by timeout, before the context is cancelled.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
