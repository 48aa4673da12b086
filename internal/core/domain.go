package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// MaxDescriptionLen bounds expense and template descriptions.
const MaxDescriptionLen = 255

type (
	Role string

	// User owns expenses, budgets and recurring templates. The password
	// hash never leaves the services layer.
	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		Role         Role
		CreatedAt    time.Time
	}

	// Category is global and shared across all users.
	Category struct {
		ID   int64
		Name string
	}

	Expense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Description string
		Date        Date
		CreatedAt   time.Time

		// CategoryName is populated on reads that join categories.
		CategoryName string
	}

	// Budget scopes an amount to a month and optionally a category.
	// A nil CategoryID is the overall budget for that month.
	Budget struct {
		ID         int64
		UserID     int64
		CategoryID *int64
		Month      Month
		Amount     Money
	}

	// RecurringTemplate generates one expense per month. It is not a
	// transaction itself.
	RecurringTemplate struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Description string
		DayOfMonth  int
		Active      bool
		CreatedAt   time.Time

		CategoryName string
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidCategory  = errors.New("invalid category")

	// ErrReportFailed is the only error the analytics aggregator surfaces;
	// the underlying cause is logged, never returned.
	ErrReportFailed = errors.New("failed to build analytics report")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 255 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.CategoryID != nil && *b.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	return nil
}

// Validate checks a template before it is stored. New templates cap
// DayOfMonth at 28 so every month can host the expense; rows imported
// from older data may still carry 29-31, which materialization clamps
// to the month's last day.
func (t RecurringTemplate) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 255 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	// Materialization clamps to the month's last day, so 28 keeps
	// templates valid in every month.
	if t.DayOfMonth < 1 || t.DayOfMonth > 28 {
		return ErrInvalidDay
	}
	return nil
}
