package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table layout; amounts and dates stay as text here and
// are converted to domain types by the store.
type (
	Budget struct {
		ID          int64
		Type        string
		Amount      string
		Category    string
		Description string
		Date        string
		CreatedAt   string
	}

	CategoryRow struct {
		ID    int64
		Name  string
		Color string
	}

	ReminderRow struct {
		ID             int64
		Title          string
		Amount         string
		DueDate        string
		Category       string
		WebsiteURL     string
		Recurring      bool
		RecurrenceType string
		IsPaid         bool
		AttachmentURL  string
		CreatedAt      string
	}

	SettingRow struct {
		Key   string
		Value string
	}
)

const budgetColumns = `id, type, amount, category, description, date, created_at`

const createBudget = `INSERT INTO budgets (type, amount, category, description, date, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + budgetColumns

func (q *Queries) CreateBudget(ctx context.Context, b Budget) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget, b.Type, b.Amount, b.Category, b.Description, b.Date, b.CreatedAt)
	return scanBudget(row)
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id int64) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id))
}

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY id`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	return q.queryBudgets(ctx, listBudgets)
}

const listBudgetsByCategory = `SELECT ` + budgetColumns + ` FROM budgets WHERE category = ? ORDER BY id`

func (q *Queries) ListBudgetsByCategory(ctx context.Context, category string) ([]Budget, error) {
	return q.queryBudgets(ctx, listBudgetsByCategory, category)
}

const listBudgetsByType = `SELECT ` + budgetColumns + ` FROM budgets WHERE type = ? ORDER BY id`

func (q *Queries) ListBudgetsByType(ctx context.Context, typ string) ([]Budget, error) {
	return q.queryBudgets(ctx, listBudgetsByType, typ)
}

const listBudgetsBetween = `SELECT ` + budgetColumns + ` FROM budgets WHERE date >= ? AND date <= ? ORDER BY date, id`

func (q *Queries) ListBudgetsBetween(ctx context.Context, from, to string) ([]Budget, error) {
	return q.queryBudgets(ctx, listBudgetsBetween, from, to)
}

const updateBudget = `UPDATE budgets SET type = ?, amount = ?, category = ?, description = ?, date = ? WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, b Budget) (int64, error) {
	return q.execAffected(ctx, updateBudget, b.Type, b.Amount, b.Category, b.Description, b.Date, b.ID)
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, deleteBudget, id)
}

const categoryColumns = `id, name, color`

const createCategory = `INSERT INTO categories (name, color) VALUES (?, ?) RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, c CategoryRow) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, createCategory, c.Name, c.Color))
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const getCategoryByName = `SELECT ` + categoryColumns + ` FROM categories WHERE name = ?`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (CategoryRow, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryByName, name))
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `UPDATE categories SET name = ?, color = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c CategoryRow) (int64, error) {
	return q.execAffected(ctx, updateCategory, c.Name, c.Color, c.ID)
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, deleteCategory, id)
}

const countCategoryReferences = `SELECT
    (SELECT COUNT(*) FROM budgets WHERE category = ?1) +
    (SELECT COUNT(*) FROM reminders WHERE category = ?1)`

func (q *Queries) CountCategoryReferences(ctx context.Context, name string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategoryReferences, name).Scan(&n)
	return n, err
}

const reminderColumns = `id, title, amount, due_date, category, website_url, recurring, recurrence_type, is_paid, attachment_url, created_at`

const createReminder = `INSERT INTO reminders (title, amount, due_date, category, website_url, recurring, recurrence_type, is_paid, attachment_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + reminderColumns

func (q *Queries) CreateReminder(ctx context.Context, r ReminderRow) (ReminderRow, error) {
	row := q.db.QueryRowContext(ctx, createReminder,
		r.Title, r.Amount, r.DueDate, r.Category, r.WebsiteURL,
		r.Recurring, r.RecurrenceType, r.IsPaid, r.AttachmentURL, r.CreatedAt)
	return scanReminder(row)
}

const getReminder = `SELECT ` + reminderColumns + ` FROM reminders WHERE id = ?`

func (q *Queries) GetReminder(ctx context.Context, id int64) (ReminderRow, error) {
	return scanReminder(q.db.QueryRowContext(ctx, getReminder, id))
}

const listReminders = `SELECT ` + reminderColumns + ` FROM reminders ORDER BY id`

func (q *Queries) ListReminders(ctx context.Context) ([]ReminderRow, error) {
	return q.queryReminders(ctx, listReminders)
}

const listRemindersByPaid = `SELECT ` + reminderColumns + ` FROM reminders WHERE is_paid = ? ORDER BY due_date, id`

func (q *Queries) ListRemindersByPaid(ctx context.Context, paid bool) ([]ReminderRow, error) {
	return q.queryReminders(ctx, listRemindersByPaid, paid)
}

const listRemindersDueBetween = `SELECT ` + reminderColumns + ` FROM reminders WHERE due_date >= ? AND due_date <= ? ORDER BY due_date, id`

func (q *Queries) ListRemindersDueBetween(ctx context.Context, from, to string) ([]ReminderRow, error) {
	return q.queryReminders(ctx, listRemindersDueBetween, from, to)
}

const updateReminder = `UPDATE reminders SET title = ?, amount = ?, due_date = ?, category = ?, website_url = ?,
    recurring = ?, recurrence_type = ?, is_paid = ?, attachment_url = ?
WHERE id = ?`

func (q *Queries) UpdateReminder(ctx context.Context, r ReminderRow) (int64, error) {
	return q.execAffected(ctx, updateReminder,
		r.Title, r.Amount, r.DueDate, r.Category, r.WebsiteURL,
		r.Recurring, r.RecurrenceType, r.IsPaid, r.AttachmentURL, r.ID)
}

const deleteReminder = `DELETE FROM reminders WHERE id = ?`

func (q *Queries) DeleteReminder(ctx context.Context, id int64) (int64, error) {
	return q.execAffected(ctx, deleteReminder, id)
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

const getSetting = `SELECT key, value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (SettingRow, error) {
	var s SettingRow
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&s.Key, &s.Value)
	return s, err
}

const listSettings = `SELECT key, value FROM settings ORDER BY key`

func (q *Queries) ListSettings(ctx context.Context) ([]SettingRow, error) {
	rows, err := q.db.QueryContext(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SettingRow
	for rows.Next() {
		var s SettingRow
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const deleteSetting = `DELETE FROM settings WHERE key = ?`

func (q *Queries) DeleteSetting(ctx context.Context, key string) (int64, error) {
	return q.execAffected(ctx, deleteSetting, key)
}

// Collections lists every collection the store provisions, in clear order.
var Collections = []string{"budgets", "categories", "reminders", "settings"}

// ClearCollection empties one collection. The name must come from Collections.
func (q *Queries) ClearCollection(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM "+name)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(s scanner) (Budget, error) {
	var b Budget
	err := s.Scan(&b.ID, &b.Type, &b.Amount, &b.Category, &b.Description, &b.Date, &b.CreatedAt)
	return b, err
}

func scanCategory(s scanner) (CategoryRow, error) {
	var c CategoryRow
	err := s.Scan(&c.ID, &c.Name, &c.Color)
	return c, err
}

func scanReminder(s scanner) (ReminderRow, error) {
	var r ReminderRow
	err := s.Scan(&r.ID, &r.Title, &r.Amount, &r.DueDate, &r.Category, &r.WebsiteURL,
		&r.Recurring, &r.RecurrenceType, &r.IsPaid, &r.AttachmentURL, &r.CreatedAt)
	return r, err
}

func (q *Queries) queryBudgets(ctx context.Context, query string, args ...interface{}) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (q *Queries) queryReminders(ctx context.Context, query string, args ...interface{}) ([]ReminderRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReminderRow
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) execAffected(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
