// Package store is the read side of persistence: owner-scoped queries over
// categories, transactions and budgets used by the aggregation services.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fintrack/internal/models"
)

// RecordStore is the read interface the evaluator and report builder consume.
// Every method scopes its query to ownerID.
type RecordStore interface {
	FindTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]models.Transaction, error)
	FindBudgets(ctx context.Context, ownerID string, filter BudgetFilter, sort Sort) ([]models.Budget, error)
	FindCategories(ctx context.Context, ownerID string, filter CategoryFilter) ([]models.Category, error)
}

// TransactionFilter narrows FindTransactions. Zero fields do not filter.
// From and To are inclusive.
type TransactionFilter struct {
	Type        *models.TransactionType
	CategoryID  *string
	CategoryIDs []string
	From        *time.Time
	To          *time.Time
	// Scopes are applied to the query as given.
	Scopes []func(*gorm.DB) *gorm.DB
}

// BudgetFilter narrows FindBudgets.
type BudgetFilter struct {
	CategoryID *string
	Period     *models.BudgetPeriod
	// StartFrom keeps budgets with StartDate >= StartFrom.
	StartFrom *time.Time
	// EndTo keeps budgets with EndDate <= EndTo.
	EndTo *time.Time
}

// CategoryFilter narrows FindCategories.
type CategoryFilter struct {
	IDs          []string
	Type         *models.CategoryType
	NameContains string
}

// Sort orders a query by a whitelisted field.
type Sort struct {
	Field string
	Desc  bool
}
