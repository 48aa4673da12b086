package core

import (
	"strings"
	"testing"
)

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		CategoryID:  1,
		Amount:      Money{Cents: 1299},
		Description: "groceries",
		Date:        NewDate(2024, 3, 14),
	}

	tests := []struct {
		name    string
		mutate  func(*Expense)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Expense) {}},
		{name: "zero date", mutate: func(e *Expense) { e.Date = Date{} }, wantErr: true},
		{name: "empty description", mutate: func(e *Expense) { e.Description = "   " }, wantErr: true},
		{name: "description too long", mutate: func(e *Expense) { e.Description = strings.Repeat("x", 256) }, wantErr: true},
		{name: "zero amount", mutate: func(e *Expense) { e.Amount = Money{} }, wantErr: true},
		{name: "negative amount", mutate: func(e *Expense) { e.Amount = Money{Cents: -100} }, wantErr: true},
		{name: "missing category", mutate: func(e *Expense) { e.CategoryID = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	valid := RecurringTemplate{
		CategoryID:  2,
		Amount:      Money{Cents: 49900},
		Description: "rent",
		DayOfMonth:  1,
	}

	tests := []struct {
		name    string
		mutate  func(*RecurringTemplate)
		wantErr bool
	}{
		{name: "valid", mutate: func(*RecurringTemplate) {}},
		{name: "day 28 ok", mutate: func(r *RecurringTemplate) { r.DayOfMonth = 28 }},
		{name: "day 0", mutate: func(r *RecurringTemplate) { r.DayOfMonth = 0 }, wantErr: true},
		{name: "day 29", mutate: func(r *RecurringTemplate) { r.DayOfMonth = 29 }, wantErr: true},
		{name: "empty description", mutate: func(r *RecurringTemplate) { r.Description = "" }, wantErr: true},
		{name: "zero amount", mutate: func(r *RecurringTemplate) { r.Amount = Money{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	cat := int64(3)
	valid := Budget{Month: Month{2024, 5}, Amount: Money{Cents: 100000}, CategoryID: &cat}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid budget: %v", err)
	}

	overall := Budget{Month: Month{2024, 5}, Amount: Money{Cents: 100000}}
	if err := overall.Validate(); err != nil {
		t.Errorf("overall budget: %v", err)
	}

	if err := (Budget{Month: Month{2024, 13}, Amount: Money{Cents: 100}}).Validate(); err == nil {
		t.Error("month 13 should be invalid")
	}
	if err := (Budget{Month: Month{2024, 5}}).Validate(); err == nil {
		t.Error("zero amount should be invalid")
	}
}
