package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

// MemoryStore is an in-memory RecordStore used by the memory backend and by
// tests. It applies the same ownership and ordering rules as the SQLite
// adapter, including the lexical date-range comparisons.
type MemoryStore struct {
	mu          sync.Mutex
	nextID      int64
	groups      []core.CategoryGroup
	categories  []core.Category
	accounts    []core.Account
	allocations []core.Allocation
	txns        []core.Transaction
}

var _ RecordStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *MemoryStore) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, userID, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
}

func (s *MemoryStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == c.ID && s.categories[i].UserID == c.UserID {
			s.categories[i] = c
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
}

func (s *MemoryStore) DeleteCategory(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == id && s.categories[i].UserID == userID {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
}

func (s *MemoryStore) ListGroups(_ context.Context, userID int64) ([]core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryGroup
	for _, g := range s.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, g core.CategoryGroup) (core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	s.groups = append(s.groups, g)
	return g, nil
}

func (s *MemoryStore) DeleteGroup(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if s.groups[i].ID == id && s.groups[i].UserID == userID {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("group %d: %w", id, core.ErrNotFound)
}

func (s *MemoryStore) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, userID, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
}

func (s *MemoryStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *MemoryStore) ListAllocationsBefore(_ context.Context, userID int64, before core.Month) ([]core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Allocation
	for _, a := range s.allocations {
		if a.UserID == userID && a.Month.Before(before) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListMonthAllocations(_ context.Context, userID int64, m core.Month) ([]core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Allocation
	for _, a := range s.allocations {
		if a.UserID == userID && a.Month == m {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertAllocation(_ context.Context, userID, categoryID int64, m core.Month, assigned decimal.Decimal) (core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.allocations {
		a := &s.allocations[i]
		if a.UserID == userID && a.CategoryID == categoryID && a.Month == m {
			a.Assigned = assigned
			return *a, nil
		}
	}
	a := core.Allocation{ID: s.id(), UserID: userID, CategoryID: categoryID, Month: m, Assigned: assigned}
	s.allocations = append(s.allocations, a)
	return a, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.txns = append(s.txns, t)
	return t, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txns {
		if t.UserID != userID {
			continue
		}
		if f.AccountID != nil && t.AccountID != *f.AccountID {
			continue
		}
		if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
			continue
		}
		if f.From != "" && t.Date < f.From {
			continue
		}
		if f.To != "" && t.Date > f.To {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].ID == id && s.txns[i].UserID == userID {
			s.txns = append(s.txns[:i], s.txns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *MemoryStore) ListCategorizedBefore(_ context.Context, userID int64, beforeDate string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txns {
		if t.UserID == userID && t.CategoryID != nil && t.Date < beforeDate {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) MonthActivity(_ context.Context, userID int64, m core.Month) (map[int64]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity := make(map[int64]decimal.Decimal)
	for _, t := range s.txns {
		if t.UserID != userID || t.CategoryID == nil {
			continue
		}
		if t.Date < m.StartDate() || t.Date > m.EndDate() {
			continue
		}
		activity[*t.CategoryID] = activity[*t.CategoryID].Add(t.Amount)
	}
	return activity, nil
}

func (s *MemoryStore) sumTransactions(userID int64, keep func(core.Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.txns {
		if t.UserID != userID || t.TransferAccountID != nil {
			continue
		}
		if keep(t) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (s *MemoryStore) SumIncomeThrough(_ context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumTransactions(userID, func(t core.Transaction) bool {
		return t.Amount.Sign() > 0 && t.Date <= m.EndDate()
	}), nil
}

func (s *MemoryStore) SumExpensesBefore(_ context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumTransactions(userID, func(t core.Transaction) bool {
		return t.Amount.Sign() < 0 && t.Date < m.StartDate()
	}), nil
}

func (s *MemoryStore) SumMonthIncome(_ context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumTransactions(userID, func(t core.Transaction) bool {
		return t.Amount.Sign() > 0 && t.Date >= m.StartDate() && t.Date <= m.EndDate()
	}), nil
}

func (s *MemoryStore) SumMonthExpenses(_ context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumTransactions(userID, func(t core.Transaction) bool {
		return t.Amount.Sign() < 0 && t.Date >= m.StartDate() && t.Date <= m.EndDate()
	}), nil
}
