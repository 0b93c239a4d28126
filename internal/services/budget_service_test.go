package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
	"envelope/internal/storage"
)

// fixture wires a memory store with one user, one account and a budget
// service, returning the pieces tests need.
type fixture struct {
	store   *storage.MemoryStore
	budget  *BudgetService
	ledger  *LedgerService
	account core.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := NewLedgerService(store)
	account, err := ledger.CreateAccount(context.Background(), core.Account{UserID: 1, Name: "Checking"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return &fixture{
		store:   store,
		budget:  NewBudgetService(store),
		ledger:  ledger,
		account: account,
	}
}

func (f *fixture) category(t *testing.T, name string, strategy core.RolloverStrategy, sweepTarget *int64) core.Category {
	t.Helper()
	c, err := f.ledger.CreateCategory(context.Background(), core.Category{
		UserID: 1, Name: name, RolloverStrategy: strategy, SweepTargetID: sweepTarget,
	})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func (f *fixture) spend(t *testing.T, categoryID int64, date, amount string) {
	t.Helper()
	_, err := f.ledger.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, AccountID: f.account.ID, CategoryID: &categoryID, Date: date, Amount: dec(amount),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
}

func (f *fixture) income(t *testing.T, date, amount string) {
	t.Helper()
	_, err := f.ledger.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, AccountID: f.account.ID, Date: date, Amount: dec(amount),
	})
	if err != nil {
		t.Fatalf("create income transaction: %v", err)
	}
}

func (f *fixture) assign(t *testing.T, categoryID int64, month core.Month, amount string) {
	t.Helper()
	if _, err := f.budget.SetAssigned(context.Background(), 1, categoryID, month, dec(amount)); err != nil {
		t.Fatalf("set assigned: %v", err)
	}
}

func (f *fixture) availability(t *testing.T, month core.Month) map[int64]core.CategoryBudget {
	t.Helper()
	groups, err := f.budget.CategoryAvailability(context.Background(), 1, month)
	if err != nil {
		t.Fatalf("category availability: %v", err)
	}
	byID := make(map[int64]core.CategoryBudget)
	for _, g := range groups {
		for _, cb := range g.Categories {
			byID[cb.Category.ID] = cb
		}
	}
	return byID
}

func TestBudgetService_RolloverAcrossMonths(t *testing.T) {
	// Strategy rollover: January leaves 70, February spends 10 of it.
	f := newFixture(t)
	c := f.category(t, "Groceries", core.StrategyRollover, nil)

	f.assign(t, c.ID, "2026-01", "100")
	f.spend(t, c.ID, "2026-01-10", "-30")
	f.spend(t, c.ID, "2026-02-05", "-10")

	january := f.availability(t, "2026-01")[c.ID]
	if !january.Available.Equal(dec("70")) {
		t.Errorf("January available = %s, want 70", january.Available)
	}

	february := f.availability(t, "2026-02")[c.ID]
	if !february.Assigned.Equal(decimal.Zero) {
		t.Errorf("February assigned = %s, want 0", february.Assigned)
	}
	if !february.Available.Equal(dec("60")) {
		t.Errorf("February available = %s, want 60", february.Available)
	}
}

func TestBudgetService_NoneForfeits(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Dining Out", core.StrategyNone, nil)

	f.assign(t, c.ID, "2026-01", "50")

	january := f.availability(t, "2026-01")[c.ID]
	if !january.Available.Equal(dec("50")) {
		t.Errorf("January available = %s, want 50", january.Available)
	}

	february := f.availability(t, "2026-02")[c.ID]
	if !february.Available.Equal(decimal.Zero) {
		t.Errorf("February available = %s, want 0 after forfeiture", february.Available)
	}
}

func TestBudgetService_SweepIntoTarget(t *testing.T) {
	f := newFixture(t)
	target := f.category(t, "Savings", core.StrategyRollover, nil)
	source := f.category(t, "Gas", core.StrategySweep, &target.ID)

	f.assign(t, source.ID, "2026-01", "40")

	february := f.availability(t, "2026-02")
	if !february[source.ID].Available.Equal(decimal.Zero) {
		t.Errorf("source February available = %s, want 0", february[source.ID].Available)
	}
	if !february[target.ID].Available.Equal(dec("40")) {
		t.Errorf("target February available = %s, want 40", february[target.ID].Available)
	}
}

func TestBudgetService_DebtCarriesIntoNextMonth(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Car Repairs", core.StrategyNone, nil)

	f.assign(t, c.ID, "2026-01", "10")
	f.spend(t, c.ID, "2026-01-20", "-50")

	february := f.availability(t, "2026-02")[c.ID]
	if !february.Available.Equal(dec("-40")) {
		t.Errorf("February available = %s, want -40", february.Available)
	}
}

func TestBudgetService_SetAssignedIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Rent", core.StrategyNone, nil)

	first, err := f.budget.SetAssigned(context.Background(), 1, c.ID, "2026-01", dec("900"))
	if err != nil {
		t.Fatalf("first SetAssigned: %v", err)
	}
	second, err := f.budget.SetAssigned(context.Background(), 1, c.ID, "2026-01", dec("900"))
	if err != nil {
		t.Fatalf("second SetAssigned: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("repeated SetAssigned created a new row: %d then %d", first.ID, second.ID)
	}
	if !second.Assigned.Equal(dec("900")) {
		t.Errorf("assigned = %s, want 900", second.Assigned)
	}

	available := f.availability(t, "2026-01")[c.ID].Available
	if !available.Equal(dec("900")) {
		t.Errorf("available = %s, want 900", available)
	}
}

func TestBudgetService_SetAssignedReplaces(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Rent", core.StrategyNone, nil)

	f.assign(t, c.ID, "2026-01", "900")
	f.assign(t, c.ID, "2026-01", "300")

	available := f.availability(t, "2026-01")[c.ID].Available
	if !available.Equal(dec("300")) {
		t.Errorf("available = %s, want 300 (replace, not add)", available)
	}
}

func TestBudgetService_SetAssignedNegativeAmount(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Buffer", core.StrategyRollover, nil)

	f.assign(t, c.ID, "2026-01", "-25")

	available := f.availability(t, "2026-01")[c.ID].Available
	if !available.Equal(dec("-25")) {
		t.Errorf("available = %s, want -25", available)
	}
}

func TestBudgetService_SetAssignedUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.budget.SetAssigned(context.Background(), 1, 999, "2026-01", dec("10"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetService_LastDayOfShortMonthIncluded(t *testing.T) {
	// April has 30 days; the month's lexical upper bound of day 31 must
	// still catch a transaction on the 30th.
	f := newFixture(t)
	c := f.category(t, "Utilities", core.StrategyRollover, nil)

	f.spend(t, c.ID, "2026-04-30", "-55")

	april := f.availability(t, "2026-04")[c.ID]
	if !april.Activity.Equal(dec("-55")) {
		t.Errorf("April activity = %s, want -55", april.Activity)
	}
}

func TestBudgetService_GoalProgress(t *testing.T) {
	f := newFixture(t)
	goal := dec("200")
	c, err := f.ledger.CreateCategory(context.Background(), core.Category{
		UserID: 1, Name: "Vacation", RolloverStrategy: core.StrategyRollover, GoalAmount: &goal,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	plain := f.category(t, "No Goal", core.StrategyNone, nil)

	f.assign(t, c.ID, "2026-01", "50")

	budgets := f.availability(t, "2026-01")
	if got := budgets[c.ID].GoalProgress; got == nil || !got.Equal(dec("25")) {
		t.Errorf("goal progress = %v, want 25", got)
	}
	if budgets[plain.ID].GoalProgress != nil {
		t.Error("category without goal should report nil progress")
	}

	// Progress caps at 100.
	f.assign(t, c.ID, "2026-01", "500")
	if got := f.availability(t, "2026-01")[c.ID].GoalProgress; got == nil || !got.Equal(dec("100")) {
		t.Errorf("goal progress = %v, want capped at 100", got)
	}
}

func TestBudgetService_Summary(t *testing.T) {
	f := newFixture(t)
	roll := f.category(t, "Groceries", core.StrategyRollover, nil)
	none := f.category(t, "Fun", core.StrategyNone, nil)

	f.income(t, "2026-01-01", "1000")
	f.assign(t, roll.ID, "2026-01", "100")
	f.assign(t, none.ID, "2026-01", "50")
	f.spend(t, roll.ID, "2026-01-10", "-30")
	f.assign(t, roll.ID, "2026-02", "20")
	f.income(t, "2026-02-01", "500")
	f.spend(t, roll.ID, "2026-02-12", "-15")

	summary, err := f.budget.BudgetSummary(context.Background(), 1, "2026-02")
	if err != nil {
		t.Fatalf("budget summary: %v", err)
	}

	// totalIncome 1500, expensesPrior -30, rolledOver 70 (the forfeited 50
	// does not count), debt 0, monthAssigned 20.
	if !summary.TotalIncome.Equal(dec("1500")) {
		t.Errorf("TotalIncome = %s, want 1500", summary.TotalIncome)
	}
	if !summary.ToBeBudgeted.Equal(dec("1380")) {
		t.Errorf("ToBeBudgeted = %s, want 1380", summary.ToBeBudgeted)
	}
	if !summary.TotalAssigned.Equal(dec("90")) {
		t.Errorf("TotalAssigned = %s, want 90", summary.TotalAssigned)
	}
	if !summary.MonthIncome.Equal(dec("500")) {
		t.Errorf("MonthIncome = %s, want 500", summary.MonthIncome)
	}
	if !summary.MonthExpenses.Equal(dec("-15")) {
		t.Errorf("MonthExpenses = %s, want -15", summary.MonthExpenses)
	}
	if !summary.MonthAssigned.Equal(dec("20")) {
		t.Errorf("MonthAssigned = %s, want 20", summary.MonthAssigned)
	}
}

func TestBudgetService_SummaryCountsDebtTwice(t *testing.T) {
	// Debt participates once inside the category's carry and once more in
	// the summary's totalDebt term. The formula keeps both on purpose.
	f := newFixture(t)
	c := f.category(t, "Overspent", core.StrategyNone, nil)

	f.income(t, "2026-01-01", "100")
	f.spend(t, c.ID, "2026-01-15", "-40")

	summary, err := f.budget.BudgetSummary(context.Background(), 1, "2026-02")
	if err != nil {
		t.Fatalf("budget summary: %v", err)
	}

	// totalIncome 100, expensesPrior -40, rolledOver 0, debt -40,
	// monthAssigned 0: 100 - 40 - 0 + (-40) - 0 = 20.
	if !summary.ToBeBudgeted.Equal(dec("20")) {
		t.Errorf("ToBeBudgeted = %s, want 20 (debt reduces the pool twice)", summary.ToBeBudgeted)
	}
}

func TestBudgetService_SummaryExcludesTransfers(t *testing.T) {
	f := newFixture(t)
	savings, err := f.ledger.CreateAccount(context.Background(), core.Account{UserID: 1, Name: "Savings"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	f.income(t, "2026-01-05", "1000")
	if _, err := f.ledger.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, AccountID: f.account.ID, Date: "2026-01-10",
		Amount: dec("-200"), TransferAccountID: &savings.ID,
	}); err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	summary, err := f.budget.BudgetSummary(context.Background(), 1, "2026-01")
	if err != nil {
		t.Fatalf("budget summary: %v", err)
	}

	if !summary.MonthIncome.Equal(dec("1000")) {
		t.Errorf("MonthIncome = %s, want 1000 (mirror inflow excluded)", summary.MonthIncome)
	}
	if !summary.MonthExpenses.Equal(decimal.Zero) {
		t.Errorf("MonthExpenses = %s, want 0 (transfer outflow excluded)", summary.MonthExpenses)
	}
}

func TestBudgetService_UngroupedCategoriesListed(t *testing.T) {
	f := newFixture(t)
	group, err := f.ledger.CreateGroup(context.Background(), core.CategoryGroup{UserID: 1, Name: "Living"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	grouped, err := f.ledger.CreateCategory(context.Background(), core.Category{
		UserID: 1, Name: "Rent", GroupID: &group.ID, RolloverStrategy: core.StrategyNone,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	loose := f.category(t, "Misc", core.StrategyNone, nil)

	groups, err := f.budget.CategoryAvailability(context.Background(), 1, "2026-01")
	if err != nil {
		t.Fatalf("category availability: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("expected grouped + ungrouped buckets, got %d", len(groups))
	}
	if groups[0].Group.ID != group.ID || len(groups[0].Categories) != 1 || groups[0].Categories[0].Category.ID != grouped.ID {
		t.Errorf("first bucket should hold the grouped category")
	}
	if groups[1].Group.ID != 0 || len(groups[1].Categories) != 1 || groups[1].Categories[0].Category.ID != loose.ID {
		t.Errorf("second bucket should hold the ungrouped category")
	}
}
