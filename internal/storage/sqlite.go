package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"envelope/internal/core"
)

// SQLiteRepository is the durable RecordStore. Amounts are stored as decimal
// strings and summed in Go so no precision is lost to SQLite's float
// arithmetic.
type SQLiteRepository struct {
	db *sql.DB
}

var _ RecordStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const categoryColumns = "id, user_id, group_id, name, sort_order, rollover_strategy, sweep_target_id, goal_amount"

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c        core.Category
		groupID  sql.NullInt64
		strategy string
		sweepID  sql.NullInt64
		goal     sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &groupID, &c.Name, &c.SortOrder, &strategy, &sweepID, &goal); err != nil {
		return core.Category{}, err
	}
	if groupID.Valid {
		c.GroupID = &groupID.Int64
	}
	c.RolloverStrategy = core.RolloverStrategy(strategy)
	if sweepID.Valid {
		c.SweepTargetID = &sweepID.Int64
	}
	if goal.Valid {
		g, err := decimal.NewFromString(goal.String)
		if err != nil {
			return core.Category{}, fmt.Errorf("parse goal amount %q: %w", goal.String, err)
		}
		c.GoalAmount = &g
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id = ? ORDER BY sort_order, id", userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ? AND user_id = ?", id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, group_id, name, sort_order, rollover_strategy, sweep_target_id, goal_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, nullInt(c.GroupID), c.Name, c.SortOrder, string(c.RolloverStrategy), nullInt(c.SweepTargetID), nullDecimal(c.GoalAmount))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", c.ID, "user_id", c.UserID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET group_id = ?, name = ?, sort_order = ?, rollover_strategy = ?, sweep_target_id = ?, goal_amount = ?
		 WHERE id = ? AND user_id = ?`,
		nullInt(c.GroupID), c.Name, c.SortOrder, string(c.RolloverStrategy), nullInt(c.SweepTargetID), nullDecimal(c.GoalAmount),
		c.ID, c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context, userID int64) ([]core.CategoryGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, sort_order FROM category_groups WHERE user_id = ? ORDER BY sort_order, id", userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []core.CategoryGroup
	for rows.Next() {
		var g core.CategoryGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.SortOrder); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.CategoryGroup) (core.CategoryGroup, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO category_groups (user_id, name, sort_order) VALUES (?, ?, ?)",
		g.UserID, g.Name, g.SortOrder)
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("create group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("group insert id: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) DeleteGroup(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM category_groups WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("group %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, type FROM accounts WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, type FROM accounts WHERE id = ? AND user_id = ?", id, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (user_id, name, type) VALUES (?, ?, ?)", a.UserID, a.Name, a.Type)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) listAllocations(ctx context.Context, query string, args ...any) ([]core.Allocation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var allocations []core.Allocation
	for rows.Next() {
		var (
			a     core.Allocation
			month string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.CategoryID, &month, &a.Assigned); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Month = core.Month(month)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *SQLiteRepository) ListAllocationsBefore(ctx context.Context, userID int64, before core.Month) ([]core.Allocation, error) {
	return r.listAllocations(ctx,
		"SELECT id, user_id, category_id, month, assigned FROM budget_allocations WHERE user_id = ? AND month < ?",
		userID, string(before))
}

func (r *SQLiteRepository) ListMonthAllocations(ctx context.Context, userID int64, m core.Month) ([]core.Allocation, error) {
	return r.listAllocations(ctx,
		"SELECT id, user_id, category_id, month, assigned FROM budget_allocations WHERE user_id = ? AND month = ?",
		userID, string(m))
}

func (r *SQLiteRepository) UpsertAllocation(ctx context.Context, userID, categoryID int64, m core.Month, assigned decimal.Decimal) (core.Allocation, error) {
	// Single conditional statement: the UNIQUE(user_id, category_id, month)
	// constraint closes the read-then-write race between concurrent writers.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_allocations (user_id, category_id, month, assigned)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, category_id, month) DO UPDATE SET assigned = excluded.assigned`,
		userID, categoryID, string(m), assigned)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("upsert allocation: %w", err)
	}

	var a core.Allocation
	var month string
	err = r.db.QueryRowContext(ctx,
		"SELECT id, user_id, category_id, month, assigned FROM budget_allocations WHERE user_id = ? AND category_id = ? AND month = ?",
		userID, categoryID, string(m)).
		Scan(&a.ID, &a.UserID, &a.CategoryID, &month, &a.Assigned)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("read back allocation: %w", err)
	}
	a.Month = core.Month(month)
	return a, nil
}

const transactionColumns = "id, user_id, account_id, category_id, date, payee, memo, amount, transfer_account_id, cleared"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t          core.Transaction
		categoryID sql.NullInt64
		transferID sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &categoryID, &t.Date, &t.Payee, &t.Memo, &t.Amount, &transferID, &t.Cleared); err != nil {
		return core.Transaction{}, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if transferID.Valid {
		t.TransferAccountID = &transferID.Int64
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, account_id, category_id, date, payee, memo, amount, transfer_account_id, cleared)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, nullInt(t.CategoryID), t.Date, t.Payee, t.Memo, t.Amount, nullInt(t.TransferAccountID), t.Cleared)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ?"
	args := []any{userID}

	if f.AccountID != nil {
		query += " AND account_id = ?"
		args = append(args, *f.AccountID)
	}
	if f.CategoryID != nil {
		query += " AND category_id = ?"
		args = append(args, *f.CategoryID)
	}
	if f.From != "" {
		query += " AND date >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		query += " AND date <= ?"
		args = append(args, f.To)
	}
	query += " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListCategorizedBefore(ctx context.Context, userID int64, beforeDate string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND date < ? AND category_id IS NOT NULL",
		userID, beforeDate)
	if err != nil {
		return nil, fmt.Errorf("list categorized transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *SQLiteRepository) MonthActivity(ctx context.Context, userID int64, m core.Month) (map[int64]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, amount FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ? AND category_id IS NOT NULL`,
		userID, m.StartDate(), m.EndDate())
	if err != nil {
		return nil, fmt.Errorf("month activity: %w", err)
	}
	defer rows.Close()

	activity := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			categoryID int64
			amount     decimal.Decimal
		)
		if err := rows.Scan(&categoryID, &amount); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		activity[categoryID] = activity[categoryID].Add(amount)
	}
	return activity, rows.Err()
}

// sumAmounts runs a query whose single column is an amount and accumulates
// the rows in decimal. Sums stay out of SQL because SQLite would coerce the
// TEXT amounts to floats.
func (r *SQLiteRepository) sumAmounts(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (r *SQLiteRepository) SumIncomeThrough(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND date <= ? AND CAST(amount AS REAL) > 0 AND transfer_account_id IS NULL`,
		userID, m.EndDate())
}

func (r *SQLiteRepository) SumExpensesBefore(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND date < ? AND CAST(amount AS REAL) < 0 AND transfer_account_id IS NULL`,
		userID, m.StartDate())
}

func (r *SQLiteRepository) SumMonthIncome(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ? AND CAST(amount AS REAL) > 0 AND transfer_account_id IS NULL`,
		userID, m.StartDate(), m.EndDate())
}

func (r *SQLiteRepository) SumMonthExpenses(ctx context.Context, userID int64, m core.Month) (decimal.Decimal, error) {
	return r.sumAmounts(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ? AND CAST(amount AS REAL) < 0 AND transfer_account_id IS NULL`,
		userID, m.StartDate(), m.EndDate())
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDecimal(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}
