// Package worker runs the background reminder loop and handles events
// consumed from the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Notifier is the slice of services.ReminderNotifier the worker drives.
type Notifier interface {
	NotifyDue(ctx context.Context, now time.Time) (int, error)
}

// Config holds configuration for the reminder worker
type Config struct {
	// Interval is how often reminders are checked (default: 1h)
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: time.Hour}
}

// ReminderWorker periodically asks the notifier to announce due reminders.
type ReminderWorker struct {
	notifier Notifier
	config   Config
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReminderWorker(notifier Notifier, config Config) *ReminderWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &ReminderWorker{notifier: notifier, config: config, now: time.Now}
}

// Start begins the check loop. Returns an error if already running.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reminder worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Reminder worker started",
		"component", "notifier",
		"interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (w *ReminderWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reminder worker stopped gracefully", "component", "notifier")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder worker stop timed out", "component", "notifier")
		return ctx.Err()
	}
}

func (w *ReminderWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce performs a single check.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	start := w.now()
	n, err := w.notifier.NotifyDue(ctx, start)
	if err != nil {
		return n, fmt.Errorf("notify due reminders: %w", err)
	}
	slog.DebugContext(ctx, "Reminder check completed",
		"component", "notifier",
		"published", n,
		"duration", time.Since(start))
	return n, nil
}

func (w *ReminderWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.check(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *ReminderWorker) check(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Reminder check failed", "component", "notifier", "error", err)
	}
}
