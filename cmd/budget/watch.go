package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/worker"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print ledger and reminder events from the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openEnv(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.broker == nil {
				return errors.New("watch requires AMQP_URL")
			}

			out := cmd.OutOrStdout()
			handler := worker.EventHandler{Sink: func(_ context.Context, ev amqp.Event) error {
				switch {
				case ev.Change != nil:
					fmt.Fprintf(out, "%s %s %s #%d\n", ev.Timestamp.Format(time.RFC3339), ev.Change.Op, ev.Change.Collection, ev.Change.RecordID)
				case ev.Reminder != nil:
					fmt.Fprintf(out, "%s due %s %q %s (%s)\n", ev.Timestamp.Format(time.RFC3339), ev.Reminder.DueDate, ev.Reminder.Title, ev.Reminder.Amount, ev.Reminder.Status)
				}
				return nil
			}}

			ctx, done := cli.GracefulShutdown(env.logger, 10*time.Second, nil)
			env.logger.Info("Watching broker events", "exchange", env.cfg.AMQPExchange, "queue", env.cfg.AMQPQueue)
			if err := env.broker.Consume(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if ctx.Err() != nil {
				<-done
			}
			return nil
		},
	}
}
