package services

import (
	"context"
	"fmt"
	"log/slog"

	"envelope/internal/core"
	"envelope/internal/storage"
)

// LedgerService owns the lifecycle of the stored entities the engine reads:
// groups, categories (including rollover configuration), accounts and
// transactions.
type LedgerService struct {
	store storage.RecordStore
}

func NewLedgerService(store storage.RecordStore) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) CreateGroup(ctx context.Context, g core.CategoryGroup) (core.CategoryGroup, error) {
	if err := g.Validate(); err != nil {
		return core.CategoryGroup{}, err
	}
	return s.store.CreateGroup(ctx, g)
}

func (s *LedgerService) ListGroups(ctx context.Context, userID int64) ([]core.CategoryGroup, error) {
	return s.store.ListGroups(ctx, userID)
}

func (s *LedgerService) DeleteGroup(ctx context.Context, userID, id int64) error {
	return s.store.DeleteGroup(ctx, userID, id)
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.RolloverStrategy == "" {
		c.RolloverStrategy = core.StrategyNone
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.validateSweepTarget(ctx, c); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *LedgerService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id int64) error {
	return s.store.DeleteCategory(ctx, userID, id)
}

// SetRolloverPolicy updates a category's rollover strategy and sweep target.
// Sweep targets are checked here, at configuration time, not during
// propagation: the target must exist, belong to the same user and differ
// from the category itself.
func (s *LedgerService) SetRolloverPolicy(ctx context.Context, userID, categoryID int64, strategy core.RolloverStrategy, sweepTargetID *int64) (core.Category, error) {
	if !strategy.Valid() {
		return core.Category{}, core.ErrInvalidStrategy
	}

	cat, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return core.Category{}, err
	}

	cat.RolloverStrategy = strategy
	if strategy == core.StrategySweep {
		cat.SweepTargetID = sweepTargetID
	} else {
		cat.SweepTargetID = nil
	}

	if err := s.validateSweepTarget(ctx, cat); err != nil {
		return core.Category{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, cat)
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Rollover policy updated",
		"user_id", userID, "category_id", categoryID, "strategy", string(strategy))

	return updated, nil
}

func (s *LedgerService) validateSweepTarget(ctx context.Context, c core.Category) error {
	if c.SweepTargetID == nil {
		return nil
	}
	if *c.SweepTargetID == c.ID {
		return fmt.Errorf("sweep target is the category itself: %w", core.ErrInvalidReference)
	}
	// GetCategory is scoped to the user, so a foreign category is
	// indistinguishable from a missing one.
	if _, err := s.store.GetCategory(ctx, c.UserID, *c.SweepTargetID); err != nil {
		return fmt.Errorf("sweep target %d: %w", *c.SweepTargetID, core.ErrInvalidReference)
	}
	return nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.Type == "" {
		a.Type = "checking"
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// CreateTransaction records a transaction after checking account ownership.
// When a transfer account is set, the mirroring counterpart row is written
// on the other account with the negated amount, the way the ledger keeps
// both sides of a transfer visible.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.store.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return core.Transaction{}, err
	}
	if t.TransferAccountID != nil {
		if _, err := s.store.GetAccount(ctx, t.UserID, *t.TransferAccountID); err != nil {
			return core.Transaction{}, err
		}
	}
	if t.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, t.UserID, *t.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	if t.TransferAccountID != nil {
		mirror := core.Transaction{
			UserID:            t.UserID,
			AccountID:         *t.TransferAccountID,
			Date:              t.Date,
			Payee:             "Transfer",
			Memo:              t.Memo,
			Amount:            t.Amount.Neg(),
			TransferAccountID: &t.AccountID,
			Cleared:           t.Cleared,
		}
		if _, err := s.store.CreateTransaction(ctx, mirror); err != nil {
			return core.Transaction{}, fmt.Errorf("mirror transfer: %w", err)
		}
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", t.UserID, "account_id", t.AccountID, "date", t.Date,
		"amount", t.Amount.String(), "transfer", t.TransferAccountID != nil)

	return created, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}
