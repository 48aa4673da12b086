package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message kinds routed through the alerts queue.
const (
	KindBudgetAlert    = "budget_alert"
	KindExpenseCreated = "expense_created"
)

// BudgetAlertMessage is published when a report finds a budget at or
// beyond its warning thresholds.
type BudgetAlertMessage struct {
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	Month     string    `json:"month"`
	Label     string    `json:"label"`
	Pct       float64   `json:"pct"`
	Overspent bool      `json:"overspent"`
	Timestamp time.Time `json:"timestamp"`
}

// ExpenseCreatedMessage is published after every successful expense
// insert, manual or materialized.
type ExpenseCreatedMessage struct {
	Kind        string    `json:"kind"`
	UserID      int64     `json:"user_id"`
	ExpenseID   int64     `json:"expense_id"`
	AmountCents int64     `json:"amount_cents"`
	Month       string    `json:"month"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(userID int64, month, label string, pct float64, overspent bool) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		Kind:      KindBudgetAlert,
		UserID:    userID,
		Month:     month,
		Label:     label,
		Pct:       pct,
		Overspent: overspent,
		Timestamp: time.Now().UTC(),
	}
}

func NewExpenseCreatedMessage(userID, expenseID, amountCents int64, month string) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		Kind:        KindExpenseCreated,
		UserID:      userID,
		ExpenseID:   expenseID,
		AmountCents: amountCents,
		Month:       month,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Envelope is the minimal shape every message shares; consumers peek at
// Kind before decoding the full payload.
type Envelope struct {
	Kind string `json:"kind"`
}

func KindOf(body []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode message envelope: %w", err)
	}
	return env.Kind, nil
}

func BudgetAlertFromJSON(body []byte) (*BudgetAlertMessage, error) {
	var m BudgetAlertMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode budget alert: %w", err)
	}
	return &m, nil
}

func ExpenseCreatedFromJSON(body []byte) (*ExpenseCreatedMessage, error) {
	var m ExpenseCreatedMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode expense created: %w", err)
	}
	return &m, nil
}
