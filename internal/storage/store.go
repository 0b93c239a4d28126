// Package storage provides the ledger record store: durable categories,
// groups, accounts, allocations and transactions the rollover engine reads.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter";
// From/To are inclusive YYYY-MM-DD bounds compared lexically.
type TransactionFilter struct {
	AccountID  *int64
	CategoryID *int64
	From       string
	To         string
	Limit      int
	Offset     int
}

// RecordStore is the port the engine and the API layer consume. The engine
// itself only reads; UpsertAllocation is the single write path it defines,
// the remaining mutations are the CRUD lifecycle of the stored entities.
type RecordStore interface {
	// Categories and groups.
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error
	ListGroups(ctx context.Context, userID int64) ([]core.CategoryGroup, error)
	CreateGroup(ctx context.Context, g core.CategoryGroup) (core.CategoryGroup, error)
	DeleteGroup(ctx context.Context, userID, id int64) error

	// Accounts.
	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	GetAccount(ctx context.Context, userID, id int64) (core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)

	// Monthly allocations. UpsertAllocation is a single conditional
	// insert-or-update guarded by the (user, category, month) uniqueness
	// constraint, so concurrent writers cannot produce duplicate rows.
	ListAllocationsBefore(ctx context.Context, userID int64, before core.Month) ([]core.Allocation, error)
	ListMonthAllocations(ctx context.Context, userID int64, m core.Month) ([]core.Allocation, error)
	UpsertAllocation(ctx context.Context, userID, categoryID int64, m core.Month, assigned decimal.Decimal) (core.Allocation, error)

	// Transactions.
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error

	// Engine reads. ListCategorizedBefore returns every categorized
	// transaction dated strictly before the given day; MonthActivity sums
	// categorized amounts per category within one month (transfers
	// included, per rollover semantics).
	ListCategorizedBefore(ctx context.Context, userID int64, beforeDate string) ([]core.Transaction, error)
	MonthActivity(ctx context.Context, userID int64, m core.Month) (map[int64]decimal.Decimal, error)

	// Reporting sums for the budget summary. Transfers are excluded from
	// all four.
	SumIncomeThrough(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error)
	SumExpensesBefore(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error)
	SumMonthIncome(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error)
	SumMonthExpenses(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error)

	Close() error
}
