package main

import (
	"context"
	"os"
	"time"

	"budget/internal/cli"
	applog "budget/internal/log"
	"budget/internal/services"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootstrap := cli.SetupLogger(applog.DefaultConfig().Level)
		bootstrap.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.SlogLevel()).WithComponent(applog.ComponentNotifier)
	logger.Info("Starting reminder-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required: due reminders are announced on the broker")
		os.Exit(1)
	}

	store, fallback, err := cli.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open local store", applog.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()
	if fallback {
		logger.Error("Local store unavailable; an empty in-memory store has nothing to announce")
		os.Exit(1)
	}

	publisher, broker, err := cli.OpenPublisher(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer broker.Close()

	notifier := services.NewReminderNotifier(store, publisher, cfg.ReminderLeadDays)
	w := worker.NewReminderWorker(notifier, worker.Config{Interval: cfg.ReminderInterval})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Failure(ctx, "Worker stop error", "shutdown", err)
		}
	})

	logger.Info("Reminder notifier configured",
		"interval", cfg.ReminderInterval,
		"lead_days", cfg.ReminderLeadDays,
		"store_dir", cfg.StoreDir)
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start reminder worker", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder-worker shutdown complete")
}
