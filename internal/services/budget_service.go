package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"envelope/internal/core"
	"envelope/internal/storage"
)

// BudgetService computes per-category availability and the month summary,
// and owns the single allocation write path. It is stateless: every call
// recomputes from the record store.
type BudgetService struct {
	store storage.RecordStore
}

func NewBudgetService(store storage.RecordStore) *BudgetService {
	return &BudgetService{store: store}
}

// carryoverInto rebuilds the carry-forward map entering the given month from
// the user's full history strictly before it.
func (s *BudgetService) carryoverInto(ctx context.Context, userID int64, m core.Month, categories []core.Category) (core.CarryoverMap, error) {
	var (
		allocations  []core.Allocation
		transactions []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		allocations, err = s.store.ListAllocationsBefore(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = s.store.ListCategorizedBefore(gctx, userID, m.StartDate())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history before %s: %w", m, err)
	}

	return PropagateCarryover(categories, BuildTimeline(allocations, transactions)), nil
}

// CategoryAvailability returns, per group, each category's assigned,
// activity, available and goal progress for the month. Categories without a
// group are collected under a zero-valued group at the end.
func (s *BudgetService) CategoryAvailability(ctx context.Context, userID int64, m core.Month) ([]core.GroupBudget, error) {
	var (
		categories  []core.Category
		groups      []core.CategoryGroup
		allocations []core.Allocation
		activity    map[int64]decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.store.ListGroups(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = s.store.ListMonthAllocations(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.store.MonthActivity(gctx, userID, m)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load month %s: %w", m, err)
	}

	carryover, err := s.carryoverInto(ctx, userID, m, categories)
	if err != nil {
		return nil, err
	}

	assigned := make(map[int64]decimal.Decimal, len(allocations))
	for _, a := range allocations {
		assigned[a.CategoryID] = assigned[a.CategoryID].Add(a.Assigned)
	}

	budgetFor := func(cat core.Category) core.CategoryBudget {
		asn := assigned[cat.ID]
		act := activity[cat.ID]
		available := carryover.Get(cat.ID).Add(asn).Add(act)
		return core.CategoryBudget{
			Category:     cat,
			Assigned:     asn,
			Activity:     act,
			Available:    available,
			GoalProgress: core.GoalProgress(cat.GoalAmount, available),
		}
	}

	var result []core.GroupBudget
	for _, group := range groups {
		gb := core.GroupBudget{Group: group}
		for _, cat := range categories {
			if cat.GroupID != nil && *cat.GroupID == group.ID {
				gb.Categories = append(gb.Categories, budgetFor(cat))
			}
		}
		result = append(result, gb)
	}

	var ungrouped core.GroupBudget
	for _, cat := range categories {
		if cat.GroupID == nil {
			ungrouped.Categories = append(ungrouped.Categories, budgetFor(cat))
		}
	}
	if len(ungrouped.Categories) > 0 {
		result = append(result, ungrouped)
	}

	slog.DebugContext(ctx, "Computed category availability",
		"user_id", userID, "month", m.String(), "groups", len(result), "categories", len(categories))

	return result, nil
}

// BudgetSummary computes the month's aggregate figures. To Be Budgeted comes
// from lifetime totals rather than summing category carries:
//
//	toBeBudgeted = totalIncome + totalExpensePrior - totalRolledOver + totalDebt - monthAssigned
//
// totalDebt is negative and already embedded in the affected categories'
// carry-in; adding it again mirrors the product's accounting choice of
// letting overspending reduce the pool globally as well.
func (s *BudgetService) BudgetSummary(ctx context.Context, userID int64, m core.Month) (core.BudgetSummary, error) {
	var (
		categories    []core.Category
		allocations   []core.Allocation
		totalIncome   decimal.Decimal
		expensesPrior decimal.Decimal
		monthIncome   decimal.Decimal
		monthExpenses decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = s.store.ListMonthAllocations(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		totalIncome, err = s.store.SumIncomeThrough(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		expensesPrior, err = s.store.SumExpensesBefore(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		monthIncome, err = s.store.SumMonthIncome(gctx, userID, m)
		return err
	})
	g.Go(func() error {
		var err error
		monthExpenses, err = s.store.SumMonthExpenses(gctx, userID, m)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BudgetSummary{}, fmt.Errorf("load summary inputs for %s: %w", m, err)
	}

	carryover, err := s.carryoverInto(ctx, userID, m, categories)
	if err != nil {
		return core.BudgetSummary{}, err
	}

	totalRolledOver := decimal.Zero
	totalDebt := decimal.Zero
	for _, v := range carryover {
		if v.Sign() > 0 {
			totalRolledOver = totalRolledOver.Add(v)
		} else {
			totalDebt = totalDebt.Add(v)
		}
	}

	monthAssigned := decimal.Zero
	for _, a := range allocations {
		monthAssigned = monthAssigned.Add(a.Assigned)
	}

	toBeBudgeted := totalIncome.
		Add(expensesPrior).
		Sub(totalRolledOver).
		Add(totalDebt).
		Sub(monthAssigned)

	return core.BudgetSummary{
		ToBeBudgeted:  toBeBudgeted,
		TotalIncome:   totalIncome,
		TotalAssigned: totalRolledOver.Add(monthAssigned),
		MonthIncome:   monthIncome,
		MonthExpenses: monthExpenses,
		MonthAssigned: monthAssigned,
	}, nil
}

// SetAssigned replaces the assigned amount for (user, category, month). It
// is idempotent and accepts negative amounts; the category must belong to
// the user.
func (s *BudgetService) SetAssigned(ctx context.Context, userID, categoryID int64, m core.Month, amount decimal.Decimal) (core.Allocation, error) {
	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		return core.Allocation{}, err
	}

	allocation, err := s.store.UpsertAllocation(ctx, userID, categoryID, m, amount)
	if err != nil {
		return core.Allocation{}, err
	}

	slog.InfoContext(ctx, "Allocation assigned",
		"user_id", userID, "category_id", categoryID, "month", m.String(), "assigned", amount.String())

	return allocation, nil
}
