package core

import "github.com/shopspring/decimal"

type (
	// MonthCell is the aggregated (assigned, activity) pair for one
	// category in one month.
	MonthCell struct {
		Assigned decimal.Decimal
		Activity decimal.Decimal
	}

	// Timeline maps month -> category -> aggregated cell. It covers every
	// month strictly before the target month that has at least one
	// allocation or one categorized transaction.
	Timeline map[Month]map[int64]MonthCell

	// CarryoverMap maps category id -> signed amount brought forward into
	// a month. It is rebuilt per computation and never persisted.
	CarryoverMap map[int64]decimal.Decimal

	// CategoryBudget is the per-category availability for the target month.
	CategoryBudget struct {
		Category     Category
		Assigned     decimal.Decimal
		Activity     decimal.Decimal
		Available    decimal.Decimal
		GoalProgress *decimal.Decimal // nil when the category has no goal
	}

	// GroupBudget is a category group with the month's budgets of its
	// member categories, in sort order.
	GroupBudget struct {
		Group      CategoryGroup
		Categories []CategoryBudget
	}

	// BudgetSummary is the month's aggregate figures, headed by the global
	// To Be Budgeted pool.
	BudgetSummary struct {
		ToBeBudgeted  decimal.Decimal
		TotalIncome   decimal.Decimal
		TotalAssigned decimal.Decimal
		MonthIncome   decimal.Decimal
		MonthExpenses decimal.Decimal
		MonthAssigned decimal.Decimal
	}
)

// Get returns the carried amount for a category, zero when absent.
func (c CarryoverMap) Get(categoryID int64) decimal.Decimal {
	if v, ok := c[categoryID]; ok {
		return v
	}
	return decimal.Zero
}

// Add accumulates an amount onto a category's carry.
func (c CarryoverMap) Add(categoryID int64, amount decimal.Decimal) {
	c[categoryID] = c.Get(categoryID).Add(amount)
}

// Cell returns the timeline cell for (month, category), zero-valued when the
// pair has no data.
func (t Timeline) Cell(m Month, categoryID int64) MonthCell {
	if byCat, ok := t[m]; ok {
		if cell, ok := byCat[categoryID]; ok {
			return cell
		}
	}
	return MonthCell{Assigned: decimal.Zero, Activity: decimal.Zero}
}

// Months returns the timeline's months in ascending order.
func (t Timeline) Months() []Month {
	months := make([]Month, 0, len(t))
	for m := range t {
		months = append(months, m)
	}
	return SortMonths(months)
}

// GoalProgress computes min(100, available/goal*100) for a category with a
// goal, nil otherwise. A zero or negative goal is treated as unset.
func GoalProgress(goal *decimal.Decimal, available decimal.Decimal) *decimal.Decimal {
	if goal == nil || goal.Sign() <= 0 {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	p := available.Div(*goal).Mul(hundred)
	if p.GreaterThan(hundred) {
		p = hundred
	}
	return &p
}
