package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
)

// EventHandler logs consumed events and forwards them to Sink when set.
type EventHandler struct {
	Sink func(context.Context, amqp.Event) error
}

// Handle is shaped for amqp.Client.Consume. Unknown kinds are dropped
// without error so they are not redelivered.
func (h EventHandler) Handle(ctx context.Context, ev amqp.Event) error {
	switch ev.Kind {
	case amqp.RoutingLedgerChanged:
		if ev.Change == nil {
			return fmt.Errorf("event %s: missing change payload", ev.ID)
		}
		slog.InfoContext(ctx, "Ledger changed",
			"component", "amqp",
			"event_id", ev.ID,
			"collection", ev.Change.Collection,
			"record_id", ev.Change.RecordID,
			"op", ev.Change.Op)
	case amqp.RoutingReminderDue:
		if ev.Reminder == nil {
			return fmt.Errorf("event %s: missing reminder payload", ev.ID)
		}
		slog.InfoContext(ctx, "Reminder due",
			"component", "amqp",
			"event_id", ev.ID,
			"title", ev.Reminder.Title,
			"amount", ev.Reminder.Amount,
			"due_date", ev.Reminder.DueDate,
			"status", ev.Reminder.Status)
	default:
		slog.WarnContext(ctx, "Dropping event of unknown kind",
			"component", "amqp", "event_id", ev.ID, "kind", ev.Kind)
		return nil
	}

	if h.Sink != nil {
		return h.Sink(ctx, ev)
	}
	return nil
}
