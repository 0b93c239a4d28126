package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

func seedTransaction(t *testing.T, s *MemoryStore, categoryID *int64, date, amount string) core.Transaction {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("parse amount %q: %v", amount, err)
	}
	tx, err := s.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, AccountID: 1, CategoryID: categoryID, Date: date, Amount: amt,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestMemoryStore_UpsertAllocationReplacesRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.UpsertAllocation(ctx, 1, 7, "2026-01", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.UpsertAllocation(ctx, 1, 7, "2026-01", decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("upsert created a second row: ids %d and %d", first.ID, second.ID)
	}
	if !second.Assigned.Equal(decimal.NewFromInt(40)) {
		t.Errorf("assigned = %s, want 40", second.Assigned)
	}

	rows, err := s.ListMonthAllocations(ctx, 1, "2026-01")
	if err != nil {
		t.Fatalf("list month allocations: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows for the month, want 1", len(rows))
	}
}

func TestMemoryStore_AllocationsScopedByUserAndMonth(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	mustUpsert := func(userID int64, m core.Month) {
		if _, err := s.UpsertAllocation(ctx, userID, 1, m, decimal.NewFromInt(10)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	mustUpsert(1, "2025-11")
	mustUpsert(1, "2026-01")
	mustUpsert(1, "2026-02")
	mustUpsert(2, "2025-12")

	before, err := s.ListAllocationsBefore(ctx, 1, "2026-02")
	if err != nil {
		t.Fatalf("list before: %v", err)
	}
	if len(before) != 2 {
		t.Errorf("got %d allocations before 2026-02 for user 1, want 2", len(before))
	}
}

func TestMemoryStore_MonthActivityUsesLexicalBounds(t *testing.T) {
	s := NewMemoryStore()
	cat := int64(3)

	seedTransaction(t, s, &cat, "2026-04-01", "-10")
	seedTransaction(t, s, &cat, "2026-04-30", "-5") // last day of a 30-day month
	seedTransaction(t, s, &cat, "2026-05-01", "-99")
	seedTransaction(t, s, nil, "2026-04-15", "-50") // uncategorized

	activity, err := s.MonthActivity(context.Background(), 1, "2026-04")
	if err != nil {
		t.Fatalf("month activity: %v", err)
	}
	if got := activity[cat]; !got.Equal(decimal.NewFromInt(-15)) {
		t.Errorf("April activity = %s, want -15", got)
	}
	if len(activity) != 1 {
		t.Errorf("activity has %d categories, want 1", len(activity))
	}
}

func TestMemoryStore_SumsExcludeTransfers(t *testing.T) {
	s := NewMemoryStore()
	other := int64(2)

	seedTransaction(t, s, nil, "2026-01-05", "1000")
	tx := core.Transaction{
		UserID: 1, AccountID: 1, Date: "2026-01-10",
		Amount: decimal.NewFromInt(-200), TransferAccountID: &other,
	}
	if _, err := s.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	income, err := s.SumMonthIncome(context.Background(), 1, "2026-01")
	if err != nil {
		t.Fatalf("sum income: %v", err)
	}
	if !income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("month income = %s, want 1000", income)
	}

	expenses, err := s.SumMonthExpenses(context.Background(), 1, "2026-01")
	if err != nil {
		t.Fatalf("sum expenses: %v", err)
	}
	if !expenses.IsZero() {
		t.Errorf("month expenses = %s, want 0 (transfer excluded)", expenses)
	}
}

func TestMemoryStore_ListTransactionsFilterAndOrder(t *testing.T) {
	s := NewMemoryStore()
	cat := int64(3)

	seedTransaction(t, s, &cat, "2026-01-05", "-10")
	newest := seedTransaction(t, s, &cat, "2026-01-20", "-20")
	seedTransaction(t, s, nil, "2026-01-10", "-30")

	rows, err := s.ListTransactions(context.Background(), 1, TransactionFilter{From: "2026-01-01", To: "2026-01-31"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].ID != newest.ID {
		t.Errorf("first row id = %d, want newest %d", rows[0].ID, newest.ID)
	}

	limited, err := s.ListTransactions(context.Background(), 1, TransactionFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d rows with limit 1, want 1", len(limited))
	}
}

func TestMemoryStore_OwnershipChecks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateCategory(ctx, core.Category{UserID: 1, Name: "Groceries", RolloverStrategy: core.StrategyNone})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := s.GetCategory(ctx, 2, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign get: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCategory(ctx, 2, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteCategory(ctx, 1, created.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}
