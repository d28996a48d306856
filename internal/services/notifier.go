package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/dashboard"
	"budget/internal/storage"
)

// NotificationsSettingKey holds the last announcement time per reminder id.
const NotificationsSettingKey = "notifier.last_notified"

// Publisher sends events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// ReminderNotifier announces unpaid reminders that are due within LeadDays
// or already overdue. Paid recurring reminders are never regenerated; the
// recurrence type only selects the cadence.
type ReminderNotifier struct {
	store     storage.Store
	publisher Publisher
	leadDays  int
}

func NewReminderNotifier(store storage.Store, publisher Publisher, leadDays int) *ReminderNotifier {
	return &ReminderNotifier{store: store, publisher: publisher, leadDays: leadDays}
}

// NotifyDue publishes a reminder.due event for every reminder whose cadence
// allows it at now and returns how many were published. A failed publish is
// logged and retried on the next run.
func (n *ReminderNotifier) NotifyDue(ctx context.Context, now time.Time) (int, error) {
	if n.store == nil || n.publisher == nil {
		return 0, fmt.Errorf("notifier not properly initialized")
	}

	unpaid, err := n.store.RemindersByPaid(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("list unpaid reminders: %w", err)
	}
	last, err := n.loadLastNotified(ctx)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Checking reminders",
		"component", "notifier",
		"unpaid", len(unpaid),
		"lead_days", n.leadDays,
		"as_of", now.Format(core.ISOLayout))

	published := 0
	live := make(map[int64]time.Time, len(unpaid))
	for _, r := range unpaid {
		if t, ok := last[r.ID]; ok {
			live[r.ID] = t
		}

		days := dashboard.DaysUntil(r.DueDate, now)
		if days > n.leadDays {
			continue
		}

		checker, err := n.checkerFor(r, days)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping reminder with unknown cadence",
				"component", "notifier", "id", r.ID, "error", err)
			continue
		}
		if !checker.ShouldNotify(live[r.ID], now, r.DueDate) {
			continue
		}

		ev := amqp.NewReminderDue(amqp.ReminderDue{
			ReminderID: r.ID,
			Title:      r.Title,
			Amount:     r.Amount.StringFixed(2),
			DueDate:    r.DueDate.ISO(),
			DaysUntil:  days,
			Status:     dashboard.Classify(r, now).String(),
			Recurrence: string(r.RecurrenceType),
		})
		if err := n.publisher.Publish(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder notification",
				"component", "notifier", "id", r.ID, "error", err)
			continue
		}

		live[r.ID] = now.UTC()
		published++
		slog.InfoContext(ctx, "Reminder notification published",
			"component", "notifier",
			"id", r.ID,
			"title", r.Title,
			"due_date", r.DueDate.ISO(),
			"days_until", days)
	}

	// entries of paid or deleted reminders are dropped here
	if err := n.saveLastNotified(ctx, live); err != nil {
		return published, err
	}
	return published, nil
}

func (n *ReminderNotifier) checkerFor(r core.Reminder, daysUntil int) (CadenceChecker, error) {
	if daysUntil < 0 || !r.Recurring {
		return DailyChecker{}, nil
	}
	return GetCadenceChecker(r.RecurrenceType)
}

func (n *ReminderNotifier) loadLastNotified(ctx context.Context) (map[int64]time.Time, error) {
	out := map[int64]time.Time{}
	s, err := n.store.Setting(ctx, NotificationsSettingKey)
	if errors.Is(err, core.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load notification state: %w", err)
	}
	var raw map[string]time.Time
	if err := json.Unmarshal(s.Value, &raw); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable notification state", "component", "notifier", "error", err)
		return out, nil
	}
	for k, v := range raw {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil {
			out[id] = v
		}
	}
	return out, nil
}

func (n *ReminderNotifier) saveLastNotified(ctx context.Context, last map[int64]time.Time) error {
	raw := make(map[string]time.Time, len(last))
	for id, t := range last {
		raw[strconv.FormatInt(id, 10)] = t
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode notification state: %w", err)
	}
	if err := n.store.PutSetting(ctx, NotificationsSettingKey, body); err != nil {
		return fmt.Errorf("save notification state: %w", err)
	}
	return nil
}
