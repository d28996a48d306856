package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/storage/memory"
)

func TestLedger_WritesPublishChanges(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)

	invalidations := 0
	svc.OnChange(func() { invalidations++ })

	tx, err := svc.AddTransaction(ctx, core.Transaction{
		Type:   core.Expense,
		Amount: decimal.RequireFromString("12.30"),
		Date:   core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if tx.Category != core.DefaultTransactionCategory {
		t.Errorf("category = %q, want default", tx.Category)
	}

	desc := "coffee"
	if _, err := svc.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: &desc}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}

	want := []string{amqp.RoutingLedgerChanged, amqp.RoutingLedgerChanged, amqp.RoutingLedgerChanged}
	if got := pub.kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
	ops := []string{}
	for _, ev := range pub.events {
		ops = append(ops, ev.Change.Op)
		if ev.Change.Collection != CollectionBudgets || ev.Change.RecordID != tx.ID {
			t.Errorf("change = %+v", ev.Change)
		}
	}
	if !reflect.DeepEqual(ops, []string{"create", "update", "delete"}) {
		t.Errorf("ops = %v", ops)
	}
	if invalidations != 3 {
		t.Errorf("invalidations = %d, want 3", invalidations)
	}
}

func TestLedger_FailedWritesDoNotPublish(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)

	_, err := svc.AddTransaction(ctx, core.Transaction{Type: "gift", Amount: decimal.NewFromInt(1), Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("err = %v, want constraint violation", err)
	}
	if err := svc.DeleteReminder(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if pub.count() != 0 {
		t.Errorf("published %d events for failed writes", pub.count())
	}
}

func TestLedger_PublishFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewLedgerService(store, &fakePublisher{fail: true})

	c, err := svc.AddCategory(ctx, core.Category{Name: "Pets"})
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if _, err := store.Category(ctx, c.ID); err != nil {
		t.Errorf("category not stored: %v", err)
	}
}

func TestLedger_CategoriesFallBackToDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil)

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if !reflect.DeepEqual(cats, core.DefaultCategories()) {
		t.Errorf("got %d categories, want defaults", len(cats))
	}

	if _, err := svc.AddCategory(ctx, core.Category{Name: "Pets", Color: "#123456"}); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	cats, err = svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Pets" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestLedger_MarkPaidAndSummary(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), nil)

	r, err := svc.AddReminder(ctx, core.Reminder{
		Title:          "Internet",
		Amount:         decimal.RequireFromString("30"),
		DueDate:        core.NewDate(2024, 3, 20),
		Recurring:      true,
		RecurrenceType: core.Monthly,
	})
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, core.Transaction{
		Type:   core.Income,
		Amount: decimal.RequireFromString("1000"),
		Date:   core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	sum, err := svc.Summary(ctx, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !sum.Balance.Equal(decimal.NewFromInt(1000)) || len(sum.UpcomingReminders) != 1 {
		t.Errorf("summary = %+v", sum)
	}

	paid, err := svc.MarkPaid(ctx, r.ID, true)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !paid.IsPaid || !paid.DueDate.Equal(r.DueDate) {
		t.Errorf("paid reminder = %+v", paid)
	}

	all, _ := svc.Store().Reminders(ctx)
	if len(all) != 1 {
		t.Errorf("paying a recurring reminder created %d records", len(all))
	}

	sum, err = svc.Summary(ctx, core.NewDate(2024, 3, 15))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sum.UpcomingReminders) != 0 {
		t.Errorf("upcoming = %d, want 0", len(sum.UpcomingReminders))
	}
}

func TestLedger_ClearAll(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.NewSeeded(), pub)

	if err := svc.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	cats, _ := svc.Store().Categories(ctx)
	if len(cats) != 0 {
		t.Errorf("categories left after clear: %d", len(cats))
	}
	if pub.count() != 4 {
		t.Errorf("published %d clear events, want 4", pub.count())
	}
}
