package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// RolloverStrategy decides what happens to a category's positive balance at
// month end. Negative balances always carry forward as debt regardless of
// the configured strategy.
type RolloverStrategy string

const (
	// StrategyNone forfeits the positive balance back to To Be Budgeted.
	StrategyNone RolloverStrategy = "none"
	// StrategyRollover carries the positive balance into the next month.
	StrategyRollover RolloverStrategy = "rollover"
	// StrategySweep redirects the positive balance into another category.
	StrategySweep RolloverStrategy = "sweep"
)

func (s RolloverStrategy) Valid() bool {
	switch s {
	case StrategyNone, StrategyRollover, StrategySweep:
		return true
	}
	return false
}

type (
	// CategoryGroup is a display and ordering container for categories.
	// It takes no part in the rollover math.
	CategoryGroup struct {
		ID        int64
		UserID    int64
		Name      string
		SortOrder int
	}

	// Category is a budgeting envelope with its durable rollover
	// configuration.
	Category struct {
		ID               int64
		UserID           int64
		GroupID          *int64
		Name             string
		SortOrder        int
		RolloverStrategy RolloverStrategy
		SweepTargetID    *int64
		GoalAmount       *decimal.Decimal
	}

	// Account is a money container transactions belong to.
	Account struct {
		ID     int64
		UserID int64
		Name   string
		Type   string
	}

	// Allocation is the assigned amount for one (user, category, month).
	// At most one row exists per key; SetAssigned replaces the amount.
	Allocation struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Month      Month
		Assigned   decimal.Decimal
	}

	// Transaction is a dated signed movement on an account. CategoryID is
	// nil for uncategorized rows; TransferAccountID marks inter-account
	// transfers, which are excluded from income/expense totals but still
	// count toward category activity when categorized.
	Transaction struct {
		ID                int64
		UserID            int64
		AccountID         int64
		CategoryID        *int64
		Date              string // YYYY-MM-DD
		Payee             string
		Memo              string
		Amount            decimal.Decimal
		TransferAccountID *int64
		Cleared           bool
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidStrategy  = errors.New("invalid rollover strategy")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
)

func (g CategoryGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !c.RolloverStrategy.Valid() {
		return ErrInvalidStrategy
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return errors.New("account is required")
	}
	if !ValidDate(t.Date) {
		return ErrInvalidDate
	}
	if len(t.Payee) > 200 {
		return errors.New("payee too long (max 200 characters)")
	}
	if len(t.Memo) > 500 {
		return errors.New("memo too long (max 500 characters)")
	}
	return nil
}

// SweepTarget returns the sweep target id when the category is configured to
// sweep and has one; ok is false otherwise. A sweep without a target behaves
// as StrategyNone.
func (c Category) SweepTarget() (int64, bool) {
	if c.RolloverStrategy != StrategySweep || c.SweepTargetID == nil {
		return 0, false
	}
	return *c.SweepTargetID, true
}
