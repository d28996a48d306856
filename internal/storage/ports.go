package storage

import (
	"context"

	"budget/internal/core"
)

// Ports implemented by the SQLite store and the in-memory fallback.
type (
	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
		Transaction(ctx context.Context, id int64) (core.Transaction, error)
		Transactions(ctx context.Context) ([]core.Transaction, error)
		TransactionsByCategory(ctx context.Context, category string) ([]core.Transaction, error)
		TransactionsByType(ctx context.Context, typ core.TransactionType) ([]core.Transaction, error)
		// TransactionsBetween returns transactions dated within [from, to].
		TransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		InsertCategory(ctx context.Context, c core.Category) (int64, error)
		Category(ctx context.Context, id int64) (core.Category, error)
		CategoryByName(ctx context.Context, name string) (core.Category, error)
		Categories(ctx context.Context) ([]core.Category, error)
		// UpdateCategory refuses to rename a category that is still
		// referenced by a transaction or reminder.
		UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	ReminderStore interface {
		InsertReminder(ctx context.Context, r core.Reminder) (int64, error)
		Reminder(ctx context.Context, id int64) (core.Reminder, error)
		Reminders(ctx context.Context) ([]core.Reminder, error)
		RemindersByPaid(ctx context.Context, paid bool) ([]core.Reminder, error)
		RemindersDueBetween(ctx context.Context, from, to core.Date) ([]core.Reminder, error)
		UpdateReminder(ctx context.Context, id int64, p core.ReminderPatch) (core.Reminder, error)
		DeleteReminder(ctx context.Context, id int64) error
	}

	SettingStore interface {
		PutSetting(ctx context.Context, key string, value []byte) error
		Setting(ctx context.Context, key string) (core.Setting, error)
		Settings(ctx context.Context) ([]core.Setting, error)
		DeleteSetting(ctx context.Context, key string) error
	}

	// Store is the full local store contract. Deleting an absent record
	// fails with core.ErrNotFound, same as updating one.
	Store interface {
		TransactionStore
		CategoryStore
		ReminderStore
		SettingStore

		// ClearAll empties every collection atomically. Identifiers are
		// not reset.
		ClearAll(ctx context.Context) error
		Usage(ctx context.Context) (core.Usage, error)
		Close() error
	}
)
