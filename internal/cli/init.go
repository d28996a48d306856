// Package cli holds the start-up steps shared by cmd/budget and
// cmd/reminder-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/remote"
	"budget/internal/services"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level slog.Level) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = level
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the configured local store. When the sqlite store is
// unavailable the process keeps running on an in-memory store, and fallback
// reports that.
func OpenStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (store storage.Store, fallback bool, err error) {
	log := logger.WithComponent(applog.ComponentStorage)
	if cfg.StoreBackend == "memory" {
		log.Info("Using in-memory store")
		return memory.New(), false, nil
	}

	s, err := storage.Open(ctx, cfg.StoreOptions())
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, core.ErrStorageUnavailable) {
		return nil, false, err
	}
	log.Warn("Local store unavailable, falling back to memory",
		"dir", cfg.StoreDir,
		"name", cfg.StoreName,
		applog.FieldError, err)
	return memory.New(), true, nil
}

// OpenPublisher connects to the broker when AMQP_URL is set. A nil
// publisher and nil client mean events are not published.
func OpenPublisher(cfg *config.Config, logger *applog.Logger) (services.Publisher, *amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, ledger events will not be published")
		return nil, nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, client, nil
}

// OpenRemote builds the remote API client when REMOTE_API_URL is set.
func OpenRemote(cfg *config.Config) (*remote.Client, error) {
	if cfg.RemoteAPIURL == "" {
		return nil, nil
	}
	return remote.NewClient(cfg.RemoteAPIURL, cfg.RemoteTimeout)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, after
// cleanup has run, and a channel closed once shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
