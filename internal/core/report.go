package core

import "math"

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
}

// MonthTotal is one point of the monthly spend series.
type MonthTotal struct {
	Month Month `json:"month"`
	Total Money `json:"total"`
}

// BudgetStatus is the derived utilization of one budget row for a month.
// Over80 and Overspent are mutually exclusive; both are false below 80%.
type BudgetStatus struct {
	BudgetID   int64  `json:"id"`
	CategoryID *int64 `json:"category_id"`
	// Label is the category name, or "Overall" for the category-less
	// monthly budget.
	Label     string  `json:"label"`
	Budget    Money   `json:"budget"`
	Spent     Money   `json:"spent"`
	Pct       float64 `json:"pct"`
	Over80    bool    `json:"over_80"`
	Overspent bool    `json:"overspent"`
}

// AnalyticsReport is the full dashboard payload for one user and month.
type AnalyticsReport struct {
	Month Month `json:"month"`

	MonthlySeries  []MonthTotal    `json:"monthly"`
	Distribution   []CategoryTotal `json:"category_distribution"`
	MonthTotal     Money           `json:"month_total"`
	LastMonthTotal Money           `json:"last_month_total"`
	TopCategory    *CategoryTotal  `json:"top_category"`
	TopCategories  []CategoryTotal `json:"top3_categories"`
	AvgDailySpend  Money           `json:"avg_daily_spend"`
	// GrowthPct is 0 when there is no prior-month data; that is a
	// sentinel, not a claim of flat spend.
	GrowthPct     float64 `json:"growth_pct"`
	PredictedNext Money   `json:"predicted_next"`

	Recent  []Expense      `json:"recent"`
	Budgets []BudgetStatus `json:"budgets"`

	// Materialized counts the recurring expenses inserted as a side
	// effect of building this report.
	Materialized int `json:"materialized"`
}

// NewBudgetStatus computes utilization for one budget row.
func NewBudgetStatus(b Budget, label string, spent Money) BudgetStatus {
	var pct float64
	if b.Amount.Cents > 0 {
		pct = Round1(float64(spent.Cents) / float64(b.Amount.Cents) * 100)
	}
	return BudgetStatus{
		BudgetID:   b.ID,
		CategoryID: b.CategoryID,
		Label:      label,
		Budget:     b.Amount,
		Spent:      spent,
		Pct:        pct,
		Over80:     pct >= 80 && pct < 100,
		Overspent:  pct >= 100,
	}
}

// GrowthPct compares two month totals as a percentage, rounded to one
// decimal. Returns 0 when the previous month had no spend.
func GrowthPct(current, last Money) float64 {
	if last.Cents <= 0 {
		return 0
	}
	return Round1(float64(current.Cents-last.Cents) / float64(last.Cents) * 100)
}

// Round1 rounds half away from zero to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
