package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

const recurringColumns = `r.id, r.user_id, r.category_id, r.amount_cents,
       r.description, r.day_of_month, r.active, r.created_at, c.name`

func (r *Repository) CreateRecurring(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses
		 (user_id, category_id, amount_cents, description, day_of_month, active)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		t.UserID, t.CategoryID, t.Amount.Cents, t.Description, t.DayOfMonth)
	if err != nil {
		return 0, fmt.Errorf("insert recurring template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring template id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetRecurring(ctx context.Context, id, userID int64) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses r
		 JOIN categories c ON c.id = r.category_id
		 WHERE r.id = ? AND r.user_id = ?`,
		id, userID)

	t, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RecurringTemplate{}, core.ErrNotFound
		}
		return core.RecurringTemplate{}, fmt.Errorf("get recurring template: %w", err)
	}
	return t, nil
}

// ListRecurring returns all templates of a user, active first.
func (r *Repository) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses r
		 JOIN categories c ON c.id = r.category_id
		 WHERE r.user_id = ?
		 ORDER BY r.active DESC, r.description`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	return collectRecurring(rows)
}

// ActiveRecurring returns only the templates eligible for
// materialization.
func (r *Repository) ActiveRecurring(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+`
		 FROM recurring_expenses r
		 JOIN categories c ON c.id = r.category_id
		 WHERE r.user_id = ? AND r.active = 1
		 ORDER BY r.id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("active recurring templates: %w", err)
	}
	defer rows.Close()

	return collectRecurring(rows)
}

// ToggleRecurring flips the active flag of an owned template.
func (r *Repository) ToggleRecurring(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET active = 1 - active
		 WHERE id = ? AND user_id = ?`,
		id, userID)
	if err != nil {
		return fmt.Errorf("toggle recurring template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("toggle recurring rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteRecurring(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recurring rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanRecurring(row rowScanner) (core.RecurringTemplate, error) {
	var t core.RecurringTemplate
	var createdStr string
	var active int
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Amount.Cents,
		&t.Description, &t.DayOfMonth, &active, &createdStr, &t.CategoryName)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	t.Active = active != 0
	t.CreatedAt = parseTimestamp(createdStr)
	return t, nil
}

func collectRecurring(rows *sql.Rows) ([]core.RecurringTemplate, error) {
	var templates []core.RecurringTemplate
	for rows.Next() {
		t, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
