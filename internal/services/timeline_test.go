package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

func TestBuildTimeline_GroupsByMonthAndCategory(t *testing.T) {
	allocations := []core.Allocation{
		{UserID: 1, CategoryID: 1, Month: "2026-01", Assigned: dec("100")},
		{UserID: 1, CategoryID: 2, Month: "2026-01", Assigned: dec("40")},
		{UserID: 1, CategoryID: 1, Month: "2026-02", Assigned: dec("25")},
	}
	transactions := []core.Transaction{
		{UserID: 1, AccountID: 1, CategoryID: ptr(1), Date: "2026-01-05", Amount: dec("-30")},
		{UserID: 1, AccountID: 1, CategoryID: ptr(1), Date: "2026-01-20", Amount: dec("-12.50")},
		{UserID: 1, AccountID: 1, CategoryID: ptr(2), Date: "2026-02-01", Amount: dec("-7")},
	}

	timeline := BuildTimeline(allocations, transactions)

	if len(timeline) != 2 {
		t.Fatalf("expected 2 months, got %d", len(timeline))
	}

	jan1 := timeline.Cell("2026-01", 1)
	if !jan1.Assigned.Equal(dec("100")) || !jan1.Activity.Equal(dec("-42.50")) {
		t.Errorf("2026-01/cat1 = (%s, %s), want (100, -42.50)", jan1.Assigned, jan1.Activity)
	}

	feb2 := timeline.Cell("2026-02", 2)
	if !feb2.Assigned.Equal(decimal.Zero) || !feb2.Activity.Equal(dec("-7")) {
		t.Errorf("2026-02/cat2 = (%s, %s), want (0, -7)", feb2.Assigned, feb2.Activity)
	}
}

func TestBuildTimeline_SkipsUncategorizedTransactions(t *testing.T) {
	transactions := []core.Transaction{
		{UserID: 1, AccountID: 1, CategoryID: nil, Date: "2026-01-05", Amount: dec("-30")},
	}

	timeline := BuildTimeline(nil, transactions)
	if len(timeline) != 0 {
		t.Errorf("uncategorized transactions should not create months, got %v", timeline)
	}
}

func TestBuildTimeline_TransfersCountTowardActivity(t *testing.T) {
	// Transfer semantics only matter to income/expense reporting; a
	// categorized transfer still moves the envelope.
	transactions := []core.Transaction{
		{UserID: 1, AccountID: 1, CategoryID: ptr(1), Date: "2026-01-05", Amount: dec("-30"), TransferAccountID: ptr(2)},
	}

	timeline := BuildTimeline(nil, transactions)
	if got := timeline.Cell("2026-01", 1).Activity; !got.Equal(dec("-30")) {
		t.Errorf("transfer activity = %s, want -30", got)
	}
}

func TestBuildTimeline_MonthsAscending(t *testing.T) {
	allocations := []core.Allocation{
		{UserID: 1, CategoryID: 1, Month: "2026-02", Assigned: dec("1")},
		{UserID: 1, CategoryID: 1, Month: "2025-12", Assigned: dec("1")},
		{UserID: 1, CategoryID: 1, Month: "2026-01", Assigned: dec("1")},
	}

	months := BuildTimeline(allocations, nil).Months()
	want := []core.Month{"2025-12", "2026-01", "2026-02"}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("Months() = %v, want %v", months, want)
		}
	}
}
