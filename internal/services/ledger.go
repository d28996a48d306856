package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/dashboard"
	"budget/internal/storage"
)

// Collection names carried in change events.
const (
	CollectionBudgets    = "budgets"
	CollectionCategories = "categories"
	CollectionReminders  = "reminders"
	CollectionSettings   = "settings"
)

// LedgerService writes through the local store and announces each change.
// Publishing is best effort: a saved record stays saved when the broker is
// down.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	onChange  []func()
	now       func() time.Time
}

func NewLedgerService(store storage.Store, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher, now: time.Now}
}

// OnChange registers fn to run after every successful write.
func (s *LedgerService) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

// Store exposes the underlying store for reads.
func (s *LedgerService) Store() storage.Store {
	return s.store
}

func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, CollectionBudgets, id, "create")
	return s.store.Transaction(ctx, id)
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	t, err := s.store.UpdateTransaction(ctx, id, p)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, CollectionBudgets, id, "update")
	return t, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, CollectionBudgets, id, "delete")
	return nil
}

func (s *LedgerService) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := s.store.InsertCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.changed(ctx, CollectionCategories, id, "create")
	return s.store.Category(ctx, id)
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	c, err := s.store.UpdateCategory(ctx, id, p)
	if err != nil {
		return core.Category{}, err
	}
	s.changed(ctx, CollectionCategories, id, "update")
	return c, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, CollectionCategories, id, "delete")
	return nil
}

// Categories returns the stored categories, or the default set when none
// exist yet.
func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return core.DefaultCategories(), nil
	}
	return cats, nil
}

func (s *LedgerService) AddReminder(ctx context.Context, r core.Reminder) (core.Reminder, error) {
	id, err := s.store.InsertReminder(ctx, r)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("save reminder: %w", err)
	}
	s.changed(ctx, CollectionReminders, id, "create")
	return s.store.Reminder(ctx, id)
}

func (s *LedgerService) UpdateReminder(ctx context.Context, id int64, p core.ReminderPatch) (core.Reminder, error) {
	r, err := s.store.UpdateReminder(ctx, id, p)
	if err != nil {
		return core.Reminder{}, err
	}
	s.changed(ctx, CollectionReminders, id, "update")
	return r, nil
}

// MarkPaid flips the paid flag. A recurring reminder is not regenerated.
func (s *LedgerService) MarkPaid(ctx context.Context, id int64, paid bool) (core.Reminder, error) {
	return s.UpdateReminder(ctx, id, core.ReminderPatch{IsPaid: &paid})
}

func (s *LedgerService) DeleteReminder(ctx context.Context, id int64) error {
	if err := s.store.DeleteReminder(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, CollectionReminders, id, "delete")
	return nil
}

func (s *LedgerService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	for _, c := range []string{CollectionBudgets, CollectionCategories, CollectionReminders, CollectionSettings} {
		s.changed(ctx, c, 0, "clear")
	}
	return nil
}

// Summary aggregates the whole store as of asOf.
func (s *LedgerService) Summary(ctx context.Context, asOf core.Date) (core.Summary, error) {
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	reminders, err := s.store.Reminders(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load reminders: %w", err)
	}
	return dashboard.Summarize(txs, reminders, asOf), nil
}

// Today is the current date on the service clock.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now())
}

func (s *LedgerService) changed(ctx context.Context, collection string, id int64, op string) {
	for _, fn := range s.onChange {
		fn()
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewRecordChanged(collection, id, op)); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event",
			"component", "ledger",
			"collection", collection,
			"id", id,
			"op", op,
			"error", err)
	}
}
