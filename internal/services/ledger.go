// Package services holds the business logic: the expense ledger, the
// budget tracker, the recurring materializer, the analytics aggregator
// and user accounts. Every service gets its storage handle injected; no
// ambient connection state exists.
package services

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/events"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// DefaultRecentLimit is the number of expenses shown in the recent list.
const DefaultRecentLimit = 5

// monthlySeriesLen is how many trailing calendar months the spend series
// covers, current month included.
const monthlySeriesLen = 12

// predictionWindow is the number of full months averaged for the
// next-month forecast.
const predictionWindow = 3

// Ledger owns expense CRUD and all aggregate spend queries.
type Ledger struct {
	store  *storage.Repository
	events *events.Client
	log    *applog.Logger
}

func NewLedger(store *storage.Repository, eventsClient *events.Client, logger *applog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		events: eventsClient,
		log:    logger.WithComponent(applog.ComponentLedger),
	}
}

// Create validates and stores a new expense for its owner, then
// publishes a creation event (best-effort).
func (l *Ledger) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := l.store.GetCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, fmt.Errorf("expense category: %w", err)
	}

	id, err := l.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	created, err := l.store.GetExpense(ctx, id, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("read back expense: %w", err)
	}

	l.log.InfoContext(ctx, "Expense created",
		applog.FieldUserID, e.UserID,
		applog.FieldExpenseID, id,
		applog.FieldAmountCents, e.Amount.Cents)

	l.publishCreated(ctx, created)
	return created, nil
}

func (l *Ledger) Get(ctx context.Context, id, ownerID int64) (core.Expense, error) {
	return l.store.GetExpense(ctx, id, ownerID)
}

// Update rewrites an owned expense. An id owned by another user is
// indistinguishable from a missing one.
func (l *Ledger) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := l.store.GetCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, fmt.Errorf("expense category: %w", err)
	}
	if err := l.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	return l.store.GetExpense(ctx, e.ID, e.UserID)
}

func (l *Ledger) Delete(ctx context.Context, id, ownerID int64) error {
	if err := l.store.DeleteExpense(ctx, id, ownerID); err != nil {
		return err
	}
	l.log.InfoContext(ctx, "Expense deleted",
		applog.FieldUserID, ownerID,
		applog.FieldExpenseID, id)
	return nil
}

func (l *Ledger) List(ctx context.Context, ownerID int64, f storage.ExpenseFilter) ([]core.Expense, error) {
	return l.store.ListExpenses(ctx, ownerID, f)
}

func (l *Ledger) Categories(ctx context.Context) ([]core.Category, error) {
	return l.store.ListCategories(ctx)
}

// Recent returns the latest expenses, DefaultRecentLimit when limit is
// not positive.
func (l *Ledger) Recent(ctx context.Context, ownerID int64, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return l.store.RecentExpenses(ctx, ownerID, limit)
}

// MonthlySeries returns per-month totals for the trailing twelve
// calendar months, the month of now included.
func (l *Ledger) MonthlySeries(ctx context.Context, ownerID int64, now time.Time) ([]core.MonthTotal, error) {
	from := core.MonthOf(now).AddMonths(-(monthlySeriesLen - 1)).First()
	return l.store.MonthlyTotals(ctx, ownerID, from)
}

// Distribution returns the per-category totals of one month, descending.
func (l *Ledger) Distribution(ctx context.Context, ownerID int64, month core.Month) ([]core.CategoryTotal, error) {
	return l.store.MonthCategoryTotals(ctx, ownerID, month, 0)
}

// MonthTotal sums one month's spend; zero when nothing matches.
func (l *Ledger) MonthTotal(ctx context.Context, ownerID int64, month core.Month) (core.Money, error) {
	return l.store.MonthTotal(ctx, ownerID, month)
}

// TopCategories returns the n biggest categories of a month; ties keep
// insertion order via the category id tie-break.
func (l *Ledger) TopCategories(ctx context.Context, ownerID int64, month core.Month, n int) ([]core.CategoryTotal, error) {
	return l.store.MonthCategoryTotals(ctx, ownerID, month, n)
}

// AvgDailySpend divides the month-to-date total by the day of the month
// now falls on: spend so far over days elapsed, not days in the month.
func (l *Ledger) AvgDailySpend(ctx context.Context, ownerID int64, now time.Time) (core.Money, error) {
	total, err := l.store.MonthTotal(ctx, ownerID, core.MonthOf(now))
	if err != nil {
		return core.Money{}, err
	}
	return core.DivideCents(total.Cents, int64(now.Day())), nil
}

// PredictedNextMonth is the mean of the three full calendar months
// preceding the current one. No spend in the window predicts zero.
func (l *Ledger) PredictedNextMonth(ctx context.Context, ownerID int64, now time.Time) (core.Money, error) {
	current := core.MonthOf(now)
	sum, err := l.store.SumBetween(ctx, ownerID,
		current.AddMonths(-predictionWindow).First(), current.First())
	if err != nil {
		return core.Money{}, err
	}
	if sum.Cents == 0 {
		return core.Money{}, nil
	}
	return core.DivideCents(sum.Cents, predictionWindow), nil
}

// TotalByUser is the all-time spend of one user (admin overview).
func (l *Ledger) TotalByUser(ctx context.Context, ownerID int64) (core.Money, error) {
	return l.store.TotalByUser(ctx, ownerID)
}

func (l *Ledger) publishCreated(ctx context.Context, e core.Expense) {
	if l.events == nil {
		return
	}
	msg := events.NewExpenseCreatedMessage(e.UserID, e.ID, e.Amount.Cents,
		core.MonthOf(e.Date.Time).String())
	if err := l.events.PublishExpenseCreated(ctx, msg); err != nil {
		// The expense is saved; event delivery never fails the request.
		l.log.WarnContext(ctx, "Failed to publish expense created event",
			applog.FieldExpenseID, e.ID,
			applog.FieldError, err)
	}
}
