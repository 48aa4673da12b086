package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestAnalytics(t *testing.T) (*Analytics, *Ledger, *Budgets, *Materializer, *storage.Repository) {
	t.Helper()
	repo := newTestRepo(t)
	logger := testLogger()
	ledger := NewLedger(repo, nil, logger)
	budgets := NewBudgets(repo, logger)
	mat := NewMaterializer(repo, logger)
	analytics := NewAnalytics(ledger, budgets, mat, nil, logger)
	return analytics, ledger, budgets, mat, repo
}

func TestBuildReport(t *testing.T) {
	analytics, ledger, budgets, mat, repo := newTestAnalytics(t)
	ctx := context.Background()
	userID := seedUser(t, repo, "alice")
	food := categoryID(t, repo, "Food")
	rent := categoryID(t, repo, "Rent")
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	// Three trailing full months for the prediction window, plus the
	// current month.
	seed := []struct {
		cents int64
		cat   int64
		date  core.Date
	}{
		{30000, food, core.NewDate(2026, 5, 12)},
		{60000, food, core.NewDate(2026, 6, 12)},
		{90000, food, core.NewDate(2026, 7, 12)},
		{25000, food, core.NewDate(2026, 8, 3)},
		{15000, rent, core.NewDate(2026, 8, 4)},
	}
	for _, s := range seed {
		if _, err := ledger.Create(ctx, core.Expense{
			UserID: userID, CategoryID: s.cat,
			Amount: core.Money{Cents: s.cents}, Description: "seed", Date: s.date,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// A recurring template worth 150.00 that the report run must insert.
	if _, err := mat.CreateTemplate(ctx, core.RecurringTemplate{
		UserID: userID, CategoryID: rent,
		Amount: core.Money{Cents: 15000}, Description: "storage unit", DayOfMonth: 1,
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	month := core.Month{Year: 2026, Month: 8}
	if err := budgets.Set(ctx, userID, month, core.Money{Cents: 50000}, &food); err != nil {
		t.Fatalf("Set budget: %v", err)
	}

	report, err := analytics.BuildReport(ctx, userID, now)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if report.Month != month {
		t.Errorf("month = %s, want 2026-08", report.Month)
	}
	if report.Materialized != 1 {
		t.Errorf("materialized = %d, want 1", report.Materialized)
	}

	// 250 + 150 manual + 150 materialized.
	if report.MonthTotal.Cents != 55000 {
		t.Errorf("month total = %d cents, want 55000", report.MonthTotal.Cents)
	}
	if report.LastMonthTotal.Cents != 90000 {
		t.Errorf("last month total = %d cents, want 90000", report.LastMonthTotal.Cents)
	}
	// (550 - 900) / 900 = -38.9%.
	if report.GrowthPct != -38.9 {
		t.Errorf("growth = %v, want -38.9", report.GrowthPct)
	}
	// 550.00 over 10 elapsed days.
	if report.AvgDailySpend.Cents != 5500 {
		t.Errorf("avg daily = %d cents, want 5500", report.AvgDailySpend.Cents)
	}
	// (300 + 600 + 900) / 3.
	if report.PredictedNext.Cents != 60000 {
		t.Errorf("predicted = %d cents, want 60000", report.PredictedNext.Cents)
	}

	if len(report.MonthlySeries) != 4 {
		t.Errorf("series has %d months, want 4", len(report.MonthlySeries))
	}
	if len(report.Distribution) != 2 {
		t.Errorf("distribution has %d categories, want 2", len(report.Distribution))
	}
	if report.TopCategory == nil || report.TopCategory.Category != "Rent" {
		t.Errorf("top category = %+v, want Rent (300.00)", report.TopCategory)
	}
	if len(report.TopCategories) != 2 {
		t.Errorf("top categories has %d entries, want 2", len(report.TopCategories))
	}
	if len(report.Recent) != DefaultRecentLimit {
		t.Errorf("recent has %d entries, want %d", len(report.Recent), DefaultRecentLimit)
	}

	if len(report.Budgets) != 1 {
		t.Fatalf("budgets has %d statuses, want 1", len(report.Budgets))
	}
	// Food spend stays 250.00 against a 500.00 budget.
	if report.Budgets[0].Pct != 50 {
		t.Errorf("food budget pct = %v, want 50", report.Budgets[0].Pct)
	}
}

func TestBuildReportEmptyUser(t *testing.T) {
	analytics, _, _, _, repo := newTestAnalytics(t)
	ctx := context.Background()
	userID := seedUser(t, repo, "fresh")
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	report, err := analytics.BuildReport(ctx, userID, now)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if report.MonthTotal.Cents != 0 {
		t.Errorf("month total = %d, want 0", report.MonthTotal.Cents)
	}
	if report.GrowthPct != 0 {
		t.Errorf("growth = %v, want sentinel 0", report.GrowthPct)
	}
	if report.PredictedNext.Cents != 0 {
		t.Errorf("predicted = %d, want 0", report.PredictedNext.Cents)
	}
	if report.AvgDailySpend.Cents != 0 {
		t.Errorf("avg daily = %d, want 0", report.AvgDailySpend.Cents)
	}
	if report.TopCategory != nil {
		t.Errorf("top category = %+v, want nil", report.TopCategory)
	}
	if report.Materialized != 0 {
		t.Errorf("materialized = %d, want 0", report.Materialized)
	}
}

func TestBuildReportIsIdempotentAcrossRuns(t *testing.T) {
	analytics, _, _, mat, repo := newTestAnalytics(t)
	ctx := context.Background()
	userID := seedUser(t, repo, "alice")
	rent := categoryID(t, repo, "Rent")
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	if _, err := mat.CreateTemplate(ctx, core.RecurringTemplate{
		UserID: userID, CategoryID: rent,
		Amount: core.Money{Cents: 90000}, Description: "rent", DayOfMonth: 1,
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	first, err := analytics.BuildReport(ctx, userID, now)
	if err != nil {
		t.Fatalf("first BuildReport: %v", err)
	}
	second, err := analytics.BuildReport(ctx, userID, now)
	if err != nil {
		t.Fatalf("second BuildReport: %v", err)
	}

	if first.Materialized != 1 || second.Materialized != 0 {
		t.Errorf("materialized = %d then %d, want 1 then 0",
			first.Materialized, second.Materialized)
	}
	if first.MonthTotal != second.MonthTotal {
		t.Errorf("month total drifted: %d then %d cents",
			first.MonthTotal.Cents, second.MonthTotal.Cents)
	}
}
