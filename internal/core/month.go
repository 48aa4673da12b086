package core

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month identifies a calendar month, serialized as YYYY-MM. It is the
// scope unit for budgets, materialization and the analytics report.
type Month struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month a timestamp falls in.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses the string form YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

func (m Month) Validate() error {
	if m.Year < 1 || m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// String returns the YYYY-MM form used in storage and on the wire.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

// LastDay returns the number of days in the month (28-31).
func (m Month) LastDay() int {
	// Day zero of the next month is the last day of this one.
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay maps a template day onto the month, so day 31 lands on the
// 28th/29th/30th in shorter months.
func (m Month) ClampDay(day int) int {
	if last := m.LastDay(); day > last {
		return last
	}
	return day
}

// AddMonths walks the calendar forward (or back for negative n).
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, time.Month(m.Month+n), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// Prev returns the previous calendar month.
func (m Month) Prev() Month {
	return m.AddMonths(-1)
}
