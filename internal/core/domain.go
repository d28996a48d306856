package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly  RecurrenceType = "weekly"
	Monthly RecurrenceType = "monthly"
	Yearly  RecurrenceType = "yearly"
)

const (
	DefaultTransactionCategory = "Uncategorized"
	DefaultReminderCategory    = "Bills & Utilities"
	DefaultCategoryColor       = "#6b7280"

	maxTextLength = 200
)

type (
	TransactionType string
	RecurrenceType  string

	// Transaction is a single income or expense entry ("budget" in the
	// collection naming).
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Category struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// Reminder is a bill with a due date. Recurring reminders are never
	// regenerated when paid; RecurrenceType is informational.
	Reminder struct {
		ID             int64           `json:"id"`
		Title          string          `json:"title"`
		Amount         decimal.Decimal `json:"amount"`
		DueDate        Date            `json:"due_date"`
		Category       string          `json:"category"`
		WebsiteURL     string          `json:"website_url,omitempty"`
		Recurring      bool            `json:"recurring"`
		RecurrenceType RecurrenceType  `json:"recurrence_type,omitempty"`
		IsPaid         bool            `json:"is_paid"`
		AttachmentURL  string          `json:"attachment_url,omitempty"`
		CreatedAt      time.Time       `json:"created_at"`
	}

	// Setting is a generic key/value pair. Value holds raw JSON.
	Setting struct {
		Key   string `json:"key"`
		Value []byte `json:"value"`
	}
)

// Patches carry partial updates: nil fields are left untouched.
type (
	TransactionPatch struct {
		Type        *TransactionType
		Amount      *decimal.Decimal
		Category    *string
		Description *string
		Date        *Date
	}

	CategoryPatch struct {
		Name  *string
		Color *string
	}

	ReminderPatch struct {
		Title          *string
		Amount         *decimal.Decimal
		DueDate        *Date
		Category       *string
		WebsiteURL     *string
		Recurring      *bool
		RecurrenceType *RecurrenceType
		IsPaid         *bool
		AttachmentURL  *string
	}
)

var (
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrConstraintViolation)
	ErrInvalidType       = fmt.Errorf("%w: type must be income or expense", ErrConstraintViolation)
	ErrEmptyCategory     = fmt.Errorf("%w: empty category", ErrConstraintViolation)
	ErrEmptyTitle        = fmt.Errorf("%w: empty title", ErrConstraintViolation)
	ErrEmptyName         = fmt.Errorf("%w: empty name", ErrConstraintViolation)
	ErrInvalidColor      = fmt.Errorf("%w: color must be a hex value like #3b82f6", ErrConstraintViolation)
	ErrInvalidRecurrence = fmt.Errorf("%w: recurrence type must be weekly, monthly or yearly", ErrConstraintViolation)
	ErrTextTooLong       = fmt.Errorf("%w: text too long (max %d characters)", ErrConstraintViolation, maxTextLength)
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r RecurrenceType) Valid() bool {
	switch r {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Signed returns the amount as it contributes to a balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > maxTextLength {
		return ErrTextTooLong
	}
	return t.Date.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > maxTextLength {
		return ErrTextTooLong
	}
	if !hexColor.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if len(r.Title) > maxTextLength {
		return ErrTextTooLong
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if err := r.DueDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	// recurrence type is required exactly when the reminder recurs
	if r.Recurring && !r.RecurrenceType.Valid() {
		return ErrInvalidRecurrence
	}
	if !r.Recurring && r.RecurrenceType != "" {
		return ErrInvalidRecurrence
	}
	return nil
}

// Normalize fills the defaults the API applies to missing fields.
func (t *Transaction) Normalize() {
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = DefaultTransactionCategory
	}
	t.Description = strings.TrimSpace(t.Description)
}

func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
}

func (r *Reminder) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = DefaultReminderCategory
	}
	if !r.Recurring {
		r.RecurrenceType = ""
	}
}

// Apply merges the patch into t.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

func (p ReminderPatch) Apply(r *Reminder) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.WebsiteURL != nil {
		r.WebsiteURL = *p.WebsiteURL
	}
	if p.Recurring != nil {
		r.Recurring = *p.Recurring
	}
	if p.RecurrenceType != nil {
		r.RecurrenceType = *p.RecurrenceType
	}
	if p.IsPaid != nil {
		r.IsPaid = *p.IsPaid
	}
	if p.AttachmentURL != nil {
		r.AttachmentURL = *p.AttachmentURL
	}
}

// DefaultCategories is the seed set used when no category data exists yet.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Food & Dining", Color: "#3b82f6"},
		{ID: 2, Name: "Transportation", Color: "#ef4444"},
		{ID: 3, Name: "Shopping", Color: "#10b981"},
		{ID: 4, Name: "Bills & Utilities", Color: "#f59e0b"},
		{ID: 5, Name: "Entertainment", Color: "#8b5cf6"},
		{ID: 6, Name: "Healthcare", Color: "#ec4899"},
		{ID: 7, Name: "Housing", Color: "#6366f1"},
		{ID: 8, Name: "Salary", Color: "#14b8a6"},
		{ID: 9, Name: "Investment", Color: "#06b6d4"},
	}
}

// DefaultQuota is the designed soft ceiling of the local store. It is
// reported, never enforced.
const DefaultQuota int64 = 500 * 1024 * 1024

// Usage is best-effort storage accounting in bytes.
type Usage struct {
	Used  int64 `json:"used"`
	Quota int64 `json:"quota"`
}
