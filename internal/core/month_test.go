package core

import (
	"testing"
	"time"
)

func TestMonthLastDay(t *testing.T) {
	tests := []struct {
		name  string
		month Month
		want  int
	}{
		{name: "january", month: Month{2024, 1}, want: 31},
		{name: "april", month: Month{2024, 4}, want: 30},
		{name: "february leap", month: Month{2024, 2}, want: 29},
		{name: "february non-leap", month: Month{2023, 2}, want: 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.month.LastDay(); got != tt.want {
				t.Errorf("%v.LastDay() = %d, want %d", tt.month, got, tt.want)
			}
		})
	}
}

func TestMonthClampDay(t *testing.T) {
	tests := []struct {
		month Month
		day   int
		want  int
	}{
		{month: Month{2023, 4}, day: 31, want: 30},
		{month: Month{2023, 2}, day: 31, want: 28},
		{month: Month{2024, 2}, day: 31, want: 29},
		{month: Month{2023, 1}, day: 15, want: 15},
	}

	for _, tt := range tests {
		if got := tt.month.ClampDay(tt.day); got != tt.want {
			t.Errorf("%v.ClampDay(%d) = %d, want %d", tt.month, tt.day, got, tt.want)
		}
	}
}

func TestMonthPrevAcrossYear(t *testing.T) {
	got := Month{2024, 1}.Prev()
	if got != (Month{2023, 12}) {
		t.Errorf("Prev() = %v, want 2023-12", got)
	}
}

func TestMonthAddMonths(t *testing.T) {
	got := Month{2024, 2}.AddMonths(-3)
	if got != (Month{2023, 11}) {
		t.Errorf("AddMonths(-3) = %v, want 2023-11", got)
	}
	got = Month{2024, 11}.AddMonths(2)
	if got != (Month{2025, 1}) {
		t.Errorf("AddMonths(2) = %v, want 2025-01", got)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-07")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.String() != "2024-07" {
		t.Errorf("round trip = %q, want 2024-07", m.String())
	}
	if _, err := ParseMonth("2024-13"); err == nil {
		t.Error("ParseMonth(2024-13) expected error")
	}
	if _, err := ParseMonth("July 2024"); err == nil {
		t.Error("ParseMonth(non-ISO) expected error")
	}
}

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC))
	if got != (Month{2024, 3}) {
		t.Errorf("MonthOf = %v, want 2024-03", got)
	}
}
