package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/cli"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and calendar partials",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	cmd.Flags().Int("rate-limit", 0, "Writes per client per minute (0 uses the default)")
	cmd.Flags().Bool("no-uploads", false, "Disable reminder attachment uploads")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	port := env.cfg.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}
	uploadDir := filepath.Join(env.cfg.StoreDir, "uploads")
	if off, _ := cmd.Flags().GetBool("no-uploads"); off || env.fallback {
		uploadDir = ""
	}
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + port,
		Ledger:    env.ledger,
		Logger:    env.logger,
		UploadDir: uploadDir,
		RateLimit: rateLimit,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(env.logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			env.logger.Failure(ctx, "Server shutdown error", "shutdown", err)
		}
	})

	env.logger.Info("Starting budget server",
		"port", port,
		"store_backend", env.cfg.StoreBackend,
		"store_fallback", env.fallback,
		"uploads", uploadDir != "",
		"amqp", env.broker != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		env.logger.Error("Server error", applog.FieldError, err, "port", port)
		return err
	}

	cli.WaitForShutdown(ctx, done)
	env.logger.Info("Server stopped gracefully")
	return nil
}
