package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
)

// ExpenseFilter narrows ListExpenses. Every field is independently
// optional; bounds are inclusive.
type ExpenseFilter struct {
	From       *core.Date
	To         *core.Date
	CategoryID *int64
	Search     string
	MinCents   *int64
	MaxCents   *int64
	Sort       string
}

// sortClauses is the closed set of accepted sort keys. Anything else
// falls back to date_desc; an unknown key is never an error.
var sortClauses = map[string]string{
	"date_desc":   "e.date DESC, e.id DESC",
	"date_asc":    "e.date ASC, e.id ASC",
	"amount_desc": "e.amount_cents DESC",
	"amount_asc":  "e.amount_cents ASC",
}

const defaultSortClause = "e.date DESC, e.id DESC"

const expenseColumns = `e.id, e.user_id, e.category_id, e.amount_cents,
       e.description, e.date, e.created_at, c.name`

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, date)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Date.String())
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ? AND e.user_id = ?`,
		id, userID)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense rewrites the mutable fields of an owned expense. A row
// owned by someone else behaves exactly like a missing row.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET category_id = ?, amount_cents = ?, description = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Amount.Cents, e.Description, e.Date.String(), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID int64, f ExpenseFilter) ([]core.Expense, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + expenseColumns + `
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?`)
	args := []any{userID}

	if f.From != nil {
		b.WriteString(" AND e.date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		b.WriteString(" AND e.date <= ?")
		args = append(args, f.To.String())
	}
	if f.CategoryID != nil {
		b.WriteString(" AND e.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Search != "" {
		b.WriteString(" AND e.description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	if f.MinCents != nil {
		b.WriteString(" AND e.amount_cents >= ?")
		args = append(args, *f.MinCents)
	}
	if f.MaxCents != nil {
		b.WriteString(" AND e.amount_cents <= ?")
		args = append(args, *f.MaxCents)
	}

	clause, ok := sortClauses[f.Sort]
	if !ok {
		clause = defaultSortClause
	}
	b.WriteString(" ORDER BY " + clause)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// RecentExpenses returns the latest expenses by date, id breaking ties.
func (r *Repository) RecentExpenses(ctx context.Context, userID int64, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 ORDER BY e.date DESC, e.id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// MonthlyTotals groups spend by YYYY-MM for dates on or after from.
func (r *Repository) MonthlyTotals(ctx context.Context, userID int64, from core.Date) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', date) AS month, SUM(amount_cents)
		 FROM expenses
		 WHERE user_id = ? AND date >= ?
		 GROUP BY month
		 ORDER BY month`,
		userID, from.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []core.MonthTotal
	for rows.Next() {
		var monthStr string
		var cents int64
		if err := rows.Scan(&monthStr, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		month, err := core.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("monthly totals: %w", err)
		}
		totals = append(totals, core.MonthTotal{Month: month, Total: core.Money{Cents: cents}})
	}
	return totals, rows.Err()
}

// MonthCategoryTotals returns per-category totals for a month, descending
// by total. A non-positive limit returns all categories.
func (r *Repository) MonthCategoryTotals(ctx context.Context, userID int64, month core.Month, limit int) ([]core.CategoryTotal, error) {
	q := `SELECT c.name, SUM(e.amount_cents) AS total
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? AND strftime('%Y-%m', e.date) = ?
		 GROUP BY c.id, c.name
		 ORDER BY total DESC, c.id`
	args := []any{userID, month.String()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("month category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthTotal sums all spend in a month; no rows means zero.
func (r *Repository) MonthTotal(ctx context.Context, userID int64, month core.Month) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM expenses
		 WHERE user_id = ? AND strftime('%Y-%m', date) = ?`,
		userID, month.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("month total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CategoryMonthTotal sums one category's spend in a month.
func (r *Repository) CategoryMonthTotal(ctx context.Context, userID, categoryID int64, month core.Month) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM expenses
		 WHERE user_id = ? AND category_id = ? AND strftime('%Y-%m', date) = ?`,
		userID, categoryID, month.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("category month total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// SumBetween sums spend with from <= date < before.
func (r *Repository) SumBetween(ctx context.Context, userID int64, from, before core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM expenses
		 WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from.String(), before.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum between: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// TotalByUser is the all-time spend of one user.
func (r *Repository) TotalByUser(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`,
		userID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("total by user: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// InsertExpenseIfAbsent inserts a materialized expense unless one with the
// same owner, category, amount and description already exists in the same
// month. The check and the insert are one statement, so concurrent
// materialization of the same template cannot double-insert.
func (r *Repository) InsertExpenseIfAbsent(ctx context.Context, e core.Expense, month core.Month) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, date)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		     SELECT 1 FROM expenses
		     WHERE user_id = ? AND category_id = ? AND amount_cents = ?
		       AND description = ? AND strftime('%Y-%m', date) = ?
		 )`,
		e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Date.String(),
		e.UserID, e.CategoryID, e.Amount.Cents, e.Description, month.String())
	if err != nil {
		return false, fmt.Errorf("insert expense if absent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert expense if absent rows: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var dateStr, createdStr string
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount.Cents,
		&e.Description, &dateStr, &createdStr, &e.CategoryName)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date, err = core.ParseDate(dateStr)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = parseTimestamp(createdStr)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// parseTimestamp reads the datetime('now') format; a zero time is fine
// for rows written by other tools.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
