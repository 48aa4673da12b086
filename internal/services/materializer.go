package services

import (
	"context"
	"fmt"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// Materializer converts active recurring templates into concrete expense
// rows, once per template per month.
//
// Idempotency is by attribute match: an expense with the same owner,
// category, amount and description inside the target month counts as
// already materialized. The generated row carries no reference back to
// its template, so two distinct templates sharing all four attributes
// suppress each other — a known limitation kept for compatibility, not
// a bug.
type Materializer struct {
	store *storage.Repository
	log   *applog.Logger
}

func NewMaterializer(store *storage.Repository, logger *applog.Logger) *Materializer {
	return &Materializer{
		store: store,
		log:   logger.WithComponent(applog.ComponentMaterializer),
	}
}

// Materialize inserts the missing expenses for every active template of
// the user in the given month and returns how many were inserted.
// Calling it again for the same month inserts nothing. Inactive
// templates are skipped; deactivating a template never removes already
// materialized expenses.
func (m *Materializer) Materialize(ctx context.Context, userID int64, month core.Month) (int, error) {
	if err := month.Validate(); err != nil {
		return 0, err
	}

	templates, err := m.store.ActiveRecurring(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load active templates: %w", err)
	}

	inserted := 0
	for _, t := range templates {
		// Day 31 templates land on the 28th/29th/30th of shorter months.
		day := month.ClampDay(t.DayOfMonth)
		expense := core.Expense{
			UserID:      userID,
			CategoryID:  t.CategoryID,
			Amount:      t.Amount,
			Description: t.Description,
			Date:        core.NewDate(month.Year, month.Month, day),
		}

		ok, err := m.store.InsertExpenseIfAbsent(ctx, expense, month)
		if err != nil {
			return inserted, fmt.Errorf("materialize template %d: %w", t.ID, err)
		}
		if ok {
			inserted++
			m.log.InfoContext(ctx, "Materialized recurring expense",
				applog.FieldUserID, userID,
				applog.FieldTemplateID, t.ID,
				applog.FieldMonth, month.String(),
				applog.FieldAmountCents, t.Amount.Cents)
		}
	}

	m.log.DebugContext(ctx, "Materialization complete",
		applog.FieldUserID, userID,
		applog.FieldMonth, month.String(),
		applog.FieldCount, inserted)
	return inserted, nil
}

// CreateTemplate validates and stores a new recurring template.
func (m *Materializer) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	if _, err := m.store.GetCategory(ctx, t.CategoryID); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("template category: %w", err)
	}

	id, err := m.store.CreateRecurring(ctx, t)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	return m.store.GetRecurring(ctx, id, t.UserID)
}

// Templates lists all templates of a user, active first.
func (m *Materializer) Templates(ctx context.Context, userID int64) ([]core.RecurringTemplate, error) {
	return m.store.ListRecurring(ctx, userID)
}

// ToggleTemplate flips a template's active flag.
func (m *Materializer) ToggleTemplate(ctx context.Context, id, userID int64) error {
	return m.store.ToggleRecurring(ctx, id, userID)
}

// DeleteTemplate removes an owned template. Expenses it already
// generated stay.
func (m *Materializer) DeleteTemplate(ctx context.Context, id, userID int64) error {
	return m.store.DeleteRecurring(ctx, id, userID)
}
