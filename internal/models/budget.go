package models

import (
	"time"

	"fintrack/internal/money"
)

// BudgetPeriod is an advisory label; it does not constrain the window.
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget caps expense spending in one category over [StartDate, EndDate].
type Budget struct {
	Base
	UserID     string       `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID string       `gorm:"type:uuid;not null;index" json:"category_id"`
	Limit      money.Amount `gorm:"column:limit_amount;type:bigint;not null" json:"limit"`
	Period     BudgetPeriod `gorm:"not null" json:"period"`
	StartDate  time.Time    `gorm:"not null" json:"start_date"`
	EndDate    time.Time    `gorm:"not null" json:"end_date"`
}

// Window returns the inclusive instant range covered by the budget: midnight
// UTC of StartDate through the last nanosecond of EndDate.
func (b *Budget) Window() (from, to time.Time) {
	from = DateOnly(b.StartDate)
	to = DateOnly(b.EndDate).Add(24*time.Hour - time.Nanosecond)
	return from, to
}

// Contains reports whether date falls in the budget window. Every query that
// attributes a transaction to a budget uses this same range.
func (b *Budget) Contains(date time.Time) bool {
	from, to := b.Window()
	d := date.UTC()
	return !d.Before(from) && !d.After(to)
}
