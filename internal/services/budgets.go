package services

import (
	"context"
	"fmt"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// OverallLabel names the category-less monthly budget in statuses.
const OverallLabel = "Overall"

// Budgets tracks per-month budget rows and computes their utilization.
type Budgets struct {
	store *storage.Repository
	log   *applog.Logger
}

func NewBudgets(store *storage.Repository, logger *applog.Logger) *Budgets {
	return &Budgets{
		store: store,
		log:   logger.WithComponent(applog.ComponentBudgets),
	}
}

// Set upserts the single budget row for (user, month, category). A nil
// categoryID targets the overall budget. Re-setting replaces the amount.
func (b *Budgets) Set(ctx context.Context, userID int64, month core.Month, amount core.Money, categoryID *int64) error {
	budget := core.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Month:      month,
		Amount:     amount,
	}
	if err := budget.Validate(); err != nil {
		return err
	}
	if categoryID != nil {
		if _, err := b.store.GetCategory(ctx, *categoryID); err != nil {
			return fmt.Errorf("budget category: %w", err)
		}
	}

	if err := b.store.UpsertBudget(ctx, budget); err != nil {
		return err
	}

	b.log.InfoContext(ctx, "Budget set",
		applog.FieldUserID, userID,
		applog.FieldMonth, month.String(),
		applog.FieldAmountCents, amount.Cents)
	return nil
}

// List returns the raw budget rows of a month with category names.
func (b *Budgets) List(ctx context.Context, userID int64, month core.Month) ([]storage.BudgetWithCategory, error) {
	return b.store.BudgetsForMonth(ctx, userID, month)
}

func (b *Budgets) Delete(ctx context.Context, id, userID int64) error {
	return b.store.DeleteBudget(ctx, id, userID)
}

// StatusForMonth computes utilization for every budget row of the month:
// spent against the budget's category (or all spend for the overall
// budget), percentage to one decimal, and the 80%/100% threshold flags.
// Statuses come back overall-first, then by category id.
func (b *Budgets) StatusForMonth(ctx context.Context, userID int64, month core.Month) ([]core.BudgetStatus, error) {
	budgets, err := b.store.BudgetsForMonth(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, row := range budgets {
		var spent core.Money
		if row.CategoryID == nil {
			spent, err = b.store.MonthTotal(ctx, userID, month)
		} else {
			spent, err = b.store.CategoryMonthTotal(ctx, userID, *row.CategoryID, month)
		}
		if err != nil {
			return nil, fmt.Errorf("budget spent for %q: %w", row.CategoryName, err)
		}

		label := row.CategoryName
		if row.CategoryID == nil {
			label = OverallLabel
		}
		statuses = append(statuses, core.NewBudgetStatus(row.Budget, label, spent))
	}
	return statuses, nil
}
