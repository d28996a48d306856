package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/config"
	applog "budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
)

// runtimeEnv is what every command opens: configuration, logger, the local
// store and, when configured, the broker.
type runtimeEnv struct {
	cfg      *config.Config
	logger   *applog.Logger
	store    storage.Store
	fallback bool
	broker   *amqp.Client
	ledger   *services.LedgerService
}

func openEnv(ctx context.Context, cmd *cobra.Command) (*runtimeEnv, error) {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		_ = godotenv.Load(path)
	} else {
		cli.LoadEnvFile()
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.SlogLevel())

	store, fallback, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher, broker, err := cli.OpenPublisher(cfg, logger)
	if err != nil {
		logger.Warn("Continuing without event publishing", applog.FieldError, err)
		publisher, broker = nil, nil
	}

	return &runtimeEnv{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		fallback: fallback,
		broker:   broker,
		ledger:   services.NewLedgerService(store, publisher),
	}, nil
}

func (e *runtimeEnv) Close() error {
	var errs []error
	if e.broker != nil {
		errs = append(errs, e.broker.Close())
	}
	errs = append(errs, e.store.Close())
	return errors.Join(errs...)
}
