package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/events"
	applog "tally/internal/log"
)

// Analytics assembles the per-user dashboard report from the ledger, the
// budget tracker and the materializer.
type Analytics struct {
	ledger       *Ledger
	budgets      *Budgets
	materializer *Materializer
	events       *events.Client
	log          *applog.Logger
}

func NewAnalytics(ledger *Ledger, budgets *Budgets, materializer *Materializer, eventsClient *events.Client, logger *applog.Logger) *Analytics {
	return &Analytics{
		ledger:       ledger,
		budgets:      budgets,
		materializer: materializer,
		events:       eventsClient,
		log:          logger.WithComponent(applog.ComponentAnalytics),
	}
}

// BuildReport produces the full analytics report for the month now falls
// in.
//
// Building a report mutates state on purpose: due recurring expenses for
// the month are materialized first, so the figures below already include
// them. There is no background scheduler; this lazy trigger is the only
// one.
//
// The report is all-or-nothing. Any internal failure aborts the build,
// the cause is logged, and the caller sees only core.ErrReportFailed.
func (a *Analytics) BuildReport(ctx context.Context, userID int64, now time.Time) (*core.AnalyticsReport, error) {
	month := core.MonthOf(now)

	inserted, err := a.materializer.Materialize(ctx, userID, month)
	if err != nil {
		return nil, a.fail(ctx, userID, month, "materialize recurring", err)
	}

	report := &core.AnalyticsReport{
		Month:        month,
		Materialized: inserted,
	}

	// Reads are independent; fan out and join. Each goroutine writes its
	// own field only.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		report.MonthlySeries, err = a.ledger.MonthlySeries(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		report.Distribution, err = a.ledger.Distribution(gctx, userID, month)
		return err
	})
	g.Go(func() (err error) {
		report.MonthTotal, err = a.ledger.MonthTotal(gctx, userID, month)
		return err
	})
	g.Go(func() (err error) {
		report.LastMonthTotal, err = a.ledger.MonthTotal(gctx, userID, month.Prev())
		return err
	})
	g.Go(func() (err error) {
		report.TopCategories, err = a.ledger.TopCategories(gctx, userID, month, 3)
		return err
	})
	g.Go(func() (err error) {
		report.AvgDailySpend, err = a.ledger.AvgDailySpend(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		report.PredictedNext, err = a.ledger.PredictedNextMonth(gctx, userID, now)
		return err
	})
	g.Go(func() (err error) {
		report.Recent, err = a.ledger.Recent(gctx, userID, DefaultRecentLimit)
		return err
	})
	g.Go(func() (err error) {
		report.Budgets, err = a.budgets.StatusForMonth(gctx, userID, month)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, a.fail(ctx, userID, month, "collect aggregates", err)
	}

	report.GrowthPct = core.GrowthPct(report.MonthTotal, report.LastMonthTotal)
	if len(report.TopCategories) > 0 {
		top := report.TopCategories[0]
		report.TopCategory = &top
	}

	a.publishAlerts(ctx, userID, month, report.Budgets)

	a.log.InfoContext(ctx, "Report built",
		applog.FieldUserID, userID,
		applog.FieldMonth, month.String(),
		"materialized", inserted,
		"month_total_cents", report.MonthTotal.Cents)
	return report, nil
}

// fail logs the cause and returns the single generic report error; the
// caller never sees partial data or internal details.
func (a *Analytics) fail(ctx context.Context, userID int64, month core.Month, op string, cause error) error {
	a.log.ErrorContext(ctx, "Report build failed",
		applog.FieldUserID, userID,
		applog.FieldMonth, month.String(),
		"op", op,
		applog.FieldError, cause)
	return fmt.Errorf("report for user %d: %w", userID, core.ErrReportFailed)
}

// publishAlerts emits one event per budget at or past its thresholds.
// Alerts are best-effort and never fail the report.
func (a *Analytics) publishAlerts(ctx context.Context, userID int64, month core.Month, statuses []core.BudgetStatus) {
	if a.events == nil {
		return
	}
	for _, st := range statuses {
		if !st.Over80 && !st.Overspent {
			continue
		}
		msg := events.NewBudgetAlertMessage(userID, month.String(), st.Label, st.Pct, st.Overspent)
		if err := a.events.PublishBudgetAlert(ctx, msg); err != nil {
			a.log.WarnContext(ctx, "Failed to publish budget alert",
				applog.FieldUserID, userID,
				"label", st.Label,
				applog.FieldError, err)
		}
	}
}
