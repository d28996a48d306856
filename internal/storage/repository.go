package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budget/internal/core"
)

// Options names and versions a local store.
type Options struct {
	// Dir holds the store file; created when missing.
	Dir string
	// Name is the store identity; the file is <Dir>/<Name>.db.
	Name string
	// Version is the schema version to open at; 0 means latest.
	Version uint
	// Quota is the reported soft ceiling in bytes; 0 means core.DefaultQuota.
	Quota int64
}

// SQLiteStore is the durable local store. Each call runs in its own
// implicit or explicit SQL transaction; SQLite serializes writers.
type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
	path    string
	quota   int64
	now     func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the named store and provisions its collections.
// Every failure is reported as core.ErrStorageUnavailable so callers can fall
// back to an in-memory store.
func Open(ctx context.Context, opts Options) (*SQLiteStore, error) {
	if opts.Name == "" {
		opts.Name = "BudgetTrackerDB"
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Quota <= 0 {
		opts.Quota = core.DefaultQuota
	}
	dbPath := filepath.Join(opts.Dir, opts.Name+".db")

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %v", core.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", core.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", core.ErrStorageUnavailable, err)
	}

	if err := RunMigrations(dbPath, opts.Version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}

	slog.InfoContext(ctx, "Local store opened",
		"path", dbPath,
		"version", opts.Version,
		"quota_bytes", opts.Quota)

	return &SQLiteStore{
		db:      db,
		queries: New(db),
		path:    dbPath,
		quota:   opts.Quota,
		now:     time.Now,
	}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return 0, err
	}
	row, err := s.queries.CreateBudget(ctx, Budget{
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.ISO(),
		CreatedAt:   formatTimestamp(s.now()),
	})
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", classify(err))
	}

	slog.DebugContext(ctx, "Transaction saved to local store",
		"id", row.ID,
		"type", row.Type,
		"amount", row.Amount,
		"category", row.Category,
		"date", row.Date)

	return row.ID, nil
}

func (s *SQLiteStore) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := s.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, classify(err))
	}
	return budgetToCore(row)
}

func (s *SQLiteStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", classify(err))
	}
	return budgetsToCore(rows)
}

func (s *SQLiteStore) TransactionsByCategory(ctx context.Context, category string) ([]core.Transaction, error) {
	rows, err := s.queries.ListBudgetsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list transactions by category %q: %w", category, classify(err))
	}
	return budgetsToCore(rows)
}

func (s *SQLiteStore) TransactionsByType(ctx context.Context, typ core.TransactionType) ([]core.Transaction, error) {
	rows, err := s.queries.ListBudgetsByType(ctx, string(typ))
	if err != nil {
		return nil, fmt.Errorf("list transactions by type %q: %w", typ, classify(err))
	}
	return budgetsToCore(rows)
}

func (s *SQLiteStore) TransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	rows, err := s.queries.ListBudgetsBetween(ctx, from.ISO(), to.ISO())
	if err != nil {
		return nil, fmt.Errorf("list transactions between %s and %s: %w", from.ISO(), to.ISO(), classify(err))
	}
	return budgetsToCore(rows)
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	var out core.Transaction
	err := s.inTx(ctx, func(q *Queries) error {
		row, err := q.GetBudget(ctx, id)
		if err != nil {
			return fmt.Errorf("get transaction %d: %w", id, classify(err))
		}
		t, err := budgetToCore(row)
		if err != nil {
			return err
		}
		p.Apply(&t)
		t.Normalize()
		if err := t.Validate(); err != nil {
			return err
		}
		if _, err := q.UpdateBudget(ctx, Budget{
			ID:          id,
			Type:        string(t.Type),
			Amount:      t.Amount.String(),
			Category:    t.Category,
			Description: t.Description,
			Date:        t.Date.ISO(),
		}); err != nil {
			return fmt.Errorf("update transaction %d: %w", id, classify(err))
		}
		out = t
		return nil
	})
	return out, err
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) InsertCategory(ctx context.Context, c core.Category) (int64, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return 0, err
	}
	row, err := s.queries.CreateCategory(ctx, CategoryRow{Name: c.Name, Color: c.Color})
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", c.Name, classify(err))
	}
	return row.ID, nil
}

func (s *SQLiteStore) Category(ctx context.Context, id int64) (core.Category, error) {
	row, err := s.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, classify(err))
	}
	return core.Category(row), nil
}

func (s *SQLiteStore) CategoryByName(ctx context.Context, name string) (core.Category, error) {
	row, err := s.queries.GetCategoryByName(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %q: %w", name, classify(err))
	}
	return core.Category(row), nil
}

func (s *SQLiteStore) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", classify(err))
	}
	out := make([]core.Category, len(rows))
	for i, r := range rows {
		out[i] = core.Category(r)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	var out core.Category
	err := s.inTx(ctx, func(q *Queries) error {
		row, err := q.GetCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("get category %d: %w", id, classify(err))
		}
		c := core.Category(row)
		oldName := c.Name
		p.Apply(&c)
		c.Normalize()
		if err := c.Validate(); err != nil {
			return err
		}
		if c.Name != oldName {
			// Transactions and reminders reference categories by name.
			refs, err := q.CountCategoryReferences(ctx, oldName)
			if err != nil {
				return fmt.Errorf("count references to %q: %w", oldName, classify(err))
			}
			if refs > 0 {
				return fmt.Errorf("%w: category %q is referenced by %d records", core.ErrConstraintViolation, oldName, refs)
			}
		}
		if _, err := q.UpdateCategory(ctx, CategoryRow(c)); err != nil {
			return fmt.Errorf("update category %d: %w", id, classify(err))
		}
		out = c
		return nil
	})
	return out, err
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("delete category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) InsertReminder(ctx context.Context, r core.Reminder) (int64, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return 0, err
	}
	row := reminderFromCore(r)
	row.CreatedAt = formatTimestamp(s.now())
	created, err := s.queries.CreateReminder(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", classify(err))
	}

	slog.DebugContext(ctx, "Reminder saved to local store",
		"id", created.ID,
		"title", created.Title,
		"due_date", created.DueDate)

	return created.ID, nil
}

func (s *SQLiteStore) Reminder(ctx context.Context, id int64) (core.Reminder, error) {
	row, err := s.queries.GetReminder(ctx, id)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("get reminder %d: %w", id, classify(err))
	}
	return reminderToCore(row)
}

func (s *SQLiteStore) Reminders(ctx context.Context) ([]core.Reminder, error) {
	rows, err := s.queries.ListReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", classify(err))
	}
	return remindersToCore(rows)
}

func (s *SQLiteStore) RemindersByPaid(ctx context.Context, paid bool) ([]core.Reminder, error) {
	rows, err := s.queries.ListRemindersByPaid(ctx, paid)
	if err != nil {
		return nil, fmt.Errorf("list reminders by paid=%t: %w", paid, classify(err))
	}
	return remindersToCore(rows)
}

func (s *SQLiteStore) RemindersDueBetween(ctx context.Context, from, to core.Date) ([]core.Reminder, error) {
	rows, err := s.queries.ListRemindersDueBetween(ctx, from.ISO(), to.ISO())
	if err != nil {
		return nil, fmt.Errorf("list reminders due between %s and %s: %w", from.ISO(), to.ISO(), classify(err))
	}
	return remindersToCore(rows)
}

func (s *SQLiteStore) UpdateReminder(ctx context.Context, id int64, p core.ReminderPatch) (core.Reminder, error) {
	var out core.Reminder
	err := s.inTx(ctx, func(q *Queries) error {
		row, err := q.GetReminder(ctx, id)
		if err != nil {
			return fmt.Errorf("get reminder %d: %w", id, classify(err))
		}
		r, err := reminderToCore(row)
		if err != nil {
			return err
		}
		p.Apply(&r)
		r.Normalize()
		if err := r.Validate(); err != nil {
			return err
		}
		updated := reminderFromCore(r)
		updated.ID = id
		if _, err := q.UpdateReminder(ctx, updated); err != nil {
			return fmt.Errorf("update reminder %d: %w", id, classify(err))
		}
		out = r
		return nil
	})
	return out, err
}

func (s *SQLiteStore) DeleteReminder(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteReminder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete reminder %d: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("delete reminder %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty setting key", core.ErrConstraintViolation)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: setting %q value is not valid JSON", core.ErrConstraintViolation, key)
	}
	if err := s.queries.UpsertSetting(ctx, key, string(value)); err != nil {
		return fmt.Errorf("put setting %q: %w", key, classify(err))
	}
	return nil
}

func (s *SQLiteStore) Setting(ctx context.Context, key string) (core.Setting, error) {
	row, err := s.queries.GetSetting(ctx, key)
	if err != nil {
		return core.Setting{}, fmt.Errorf("get setting %q: %w", key, classify(err))
	}
	return core.Setting{Key: row.Key, Value: []byte(row.Value)}, nil
}

func (s *SQLiteStore) Settings(ctx context.Context) ([]core.Setting, error) {
	rows, err := s.queries.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", classify(err))
	}
	out := make([]core.Setting, len(rows))
	for i, r := range rows {
		out[i] = core.Setting{Key: r.Key, Value: []byte(r.Value)}
	}
	return out, nil
}

func (s *SQLiteStore) DeleteSetting(ctx context.Context, key string) error {
	n, err := s.queries.DeleteSetting(ctx, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("delete setting %q: %w", key, core.ErrNotFound)
	}
	return nil
}

// ClearAll empties the four collections in a single transaction. The
// sqlite_sequence counters survive, so identifiers are never reused.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	err := s.inTx(ctx, func(q *Queries) error {
		for _, name := range Collections {
			if err := q.ClearCollection(ctx, name); err != nil {
				return fmt.Errorf("clear %s: %w", name, classify(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Local store cleared", "collections", len(Collections))
	return nil
}

// Usage sums the database file and its WAL side files. When nothing can be
// measured it reports zero usage against the quota.
func (s *SQLiteStore) Usage(ctx context.Context) (core.Usage, error) {
	var used int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		used += fi.Size()
	}
	return core.Usage{Used: used, Quota: s.quota}, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	if err := fn(s.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

// classify maps driver errors onto the core taxonomy.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", core.ErrConstraintViolation, err)
	}
	return err
}

const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func budgetToCore(b Budget) (core.Transaction, error) {
	amount, err := decimal.NewFromString(b.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", b.ID, b.Amount, err)
	}
	date, err := core.ParseISO(b.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", b.ID, err)
	}
	created, _ := time.Parse(timestampLayout, b.CreatedAt)
	return core.Transaction{
		ID:          b.ID,
		Type:        core.TransactionType(b.Type),
		Amount:      amount,
		Category:    b.Category,
		Description: b.Description,
		Date:        date,
		CreatedAt:   created,
	}, nil
}

func budgetsToCore(rows []Budget) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := budgetToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func reminderFromCore(r core.Reminder) ReminderRow {
	return ReminderRow{
		Title:          r.Title,
		Amount:         r.Amount.String(),
		DueDate:        r.DueDate.ISO(),
		Category:       r.Category,
		WebsiteURL:     r.WebsiteURL,
		Recurring:      r.Recurring,
		RecurrenceType: string(r.RecurrenceType),
		IsPaid:         r.IsPaid,
		AttachmentURL:  r.AttachmentURL,
	}
}

func reminderToCore(r ReminderRow) (core.Reminder, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("reminder %d amount %q: %w", r.ID, r.Amount, err)
	}
	due, err := core.ParseISO(r.DueDate)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	created, _ := time.Parse(timestampLayout, r.CreatedAt)
	return core.Reminder{
		ID:             r.ID,
		Title:          r.Title,
		Amount:         amount,
		DueDate:        due,
		Category:       r.Category,
		WebsiteURL:     r.WebsiteURL,
		Recurring:      r.Recurring,
		RecurrenceType: core.RecurrenceType(r.RecurrenceType),
		IsPaid:         r.IsPaid,
		AttachmentURL:  r.AttachmentURL,
		CreatedAt:      created,
	}, nil
}

func remindersToCore(rows []ReminderRow) ([]core.Reminder, error) {
	out := make([]core.Reminder, 0, len(rows))
	for _, r := range rows {
		rem, err := reminderToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, nil
}
