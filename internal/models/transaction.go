package models

import (
	"time"

	"fintrack/internal/money"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// MaxDescriptionLength bounds Transaction.Description.
const MaxDescriptionLength = 200

// CategoryType returns the category type a transaction of this type must use.
func (t TransactionType) CategoryType() CategoryType {
	return CategoryType(t)
}

// Transaction represents a single income or expense entry.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_owner_date" json:"user_id"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      money.Amount    `gorm:"type:bigint;not null" json:"amount"`
	Description string          `gorm:"size:200" json:"description"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_owner_date" json:"date"`
	// Recurring is advisory; nothing schedules repeats.
	Recurring bool `gorm:"default:false" json:"recurring"`
}
