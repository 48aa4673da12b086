package core

import "testing"

func TestNewBudgetStatus(t *testing.T) {
	budget := Budget{ID: 1, Amount: Money{Cents: 20000}}

	tests := []struct {
		name          string
		spentCents    int64
		wantPct       float64
		wantOver80    bool
		wantOverspent bool
	}{
		{name: "under threshold", spentCents: 15000, wantPct: 75.0},
		{name: "over 80", spentCents: 18000, wantPct: 90.0, wantOver80: true},
		{name: "overspent", spentCents: 25000, wantPct: 125.0, wantOverspent: true},
		{name: "exactly 100", spentCents: 20000, wantPct: 100.0, wantOverspent: true},
		{name: "exactly 80", spentCents: 16000, wantPct: 80.0, wantOver80: true},
		{name: "no spend", spentCents: 0, wantPct: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewBudgetStatus(budget, "Overall", Money{Cents: tt.spentCents})
			if st.Pct != tt.wantPct {
				t.Errorf("Pct = %v, want %v", st.Pct, tt.wantPct)
			}
			if st.Over80 != tt.wantOver80 {
				t.Errorf("Over80 = %v, want %v", st.Over80, tt.wantOver80)
			}
			if st.Overspent != tt.wantOverspent {
				t.Errorf("Overspent = %v, want %v", st.Overspent, tt.wantOverspent)
			}
			if st.Over80 && st.Overspent {
				t.Error("Over80 and Overspent must be mutually exclusive")
			}
		})
	}
}

func TestNewBudgetStatusZeroBudget(t *testing.T) {
	st := NewBudgetStatus(Budget{}, "Overall", Money{Cents: 5000})
	if st.Pct != 0 {
		t.Errorf("Pct with zero budget = %v, want 0", st.Pct)
	}
}

func TestGrowthPct(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		last    int64
		want    float64
	}{
		{name: "no prior data", current: 12345, last: 0, want: 0},
		{name: "growth", current: 15000, last: 10000, want: 50.0},
		{name: "decline", current: 7500, last: 10000, want: -25.0},
		{name: "rounded to one decimal", current: 10123, last: 10000, want: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthPct(Money{Cents: tt.current}, Money{Cents: tt.last})
			if got != tt.want {
				t.Errorf("GrowthPct = %v, want %v", got, tt.want)
			}
		})
	}
}
