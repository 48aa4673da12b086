package storage

import (
	"context"
	"fmt"

	"tally/internal/core"
)

// BudgetWithCategory pairs a budget row with its category name for
// display; the name is empty for the overall budget.
type BudgetWithCategory struct {
	core.Budget
	CategoryName string
}

// UpsertBudget inserts or replaces the amount of the single budget row
// for (user, month, category). The conflict target matches the unique
// index expression, so the NULL-category overall budget upserts too.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, month, amount_cents)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, month, COALESCE(category_id, 0))
		 DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.UserID, b.CategoryID, b.Month.String(), b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// BudgetsForMonth lists a user's budget rows for one month, overall
// budget first, then by category id.
func (r *Repository) BudgetsForMonth(ctx context.Context, userID int64, month core.Month) ([]BudgetWithCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.category_id, b.month, b.amount_cents, COALESCE(c.name, '')
		 FROM budgets b
		 LEFT JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ? AND b.month = ?
		 ORDER BY b.category_id IS NOT NULL, b.category_id`,
		userID, month.String())
	if err != nil {
		return nil, fmt.Errorf("budgets for month: %w", err)
	}
	defer rows.Close()

	var budgets []BudgetWithCategory
	for rows.Next() {
		var b BudgetWithCategory
		var monthStr string
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &monthStr,
			&b.Amount.Cents, &b.CategoryName); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Month, err = core.ParseMonth(monthStr); err != nil {
			return nil, fmt.Errorf("budgets for month: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *Repository) DeleteBudget(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
