package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.InsertTransaction(ctx, core.Transaction{
		Type:   core.Expense,
		Amount: decimal.NewFromInt(12),
		Date:   core.NewDate(2024, 2, 10),
	})
	if err != nil || id != 1 {
		t.Fatalf("unexpected insert: id=%d err=%v", id, err)
	}
	got, err := s.Transaction(ctx, id)
	if err != nil || got.Category != core.DefaultTransactionCategory || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected transaction: %+v err=%v", got, err)
	}

	s.InsertTransaction(ctx, core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(5), Category: "Salary", Date: core.NewDate(2024, 1, 1)})
	between, _ := s.TransactionsBetween(ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	if len(between) != 2 || between[0].Category != "Salary" {
		t.Fatalf("expected date ordering, got %+v", between)
	}
	byType, _ := s.TransactionsByType(ctx, core.Expense)
	if len(byType) != 1 {
		t.Fatalf("by type: %+v", byType)
	}

	if err := s.DeleteTransaction(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreCategoryRules(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded()

	cats, _ := s.Categories(ctx)
	if len(cats) != len(core.DefaultCategories()) {
		t.Fatalf("seeded %d categories", len(cats))
	}
	if _, err := s.InsertCategory(ctx, core.Category{Name: "Shopping"}); !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("duplicate name: expected constraint violation, got %v", err)
	}

	shopping, _ := s.CategoryByName(ctx, "Shopping")
	s.InsertTransaction(ctx, core.Transaction{Type: core.Expense, Amount: decimal.NewFromInt(1), Category: "Shopping", Date: core.NewDate(2024, 1, 1)})
	name := "Retail"
	if _, err := s.UpdateCategory(ctx, shopping.ID, core.CategoryPatch{Name: &name}); !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("rename referenced: expected constraint violation, got %v", err)
	}
}

func TestMemoryStoreClearAllKeepsSequences(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, _ := s.InsertReminder(ctx, core.Reminder{Title: "Gas", Amount: decimal.NewFromInt(40), DueDate: core.NewDate(2024, 1, 1)})
	s.PutSetting(ctx, "k", []byte(`1`))
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := s.Setting(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("setting survived clear: %v", err)
	}
	next, _ := s.InsertReminder(ctx, core.Reminder{Title: "Gas", Amount: decimal.NewFromInt(40), DueDate: core.NewDate(2024, 1, 1)})
	if next <= first {
		t.Fatalf("identifier reused: first=%d next=%d", first, next)
	}

	u, _ := s.Usage(ctx)
	if u.Used <= 0 || u.Quota != core.DefaultQuota {
		t.Fatalf("unexpected usage: %+v", u)
	}
}
