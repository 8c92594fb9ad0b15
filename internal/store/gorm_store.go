package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrack/internal/models"
)

// Budget sort fields accepted by FindBudgets.
const (
	BudgetSortStartDate = "startdate"
	BudgetSortLimit     = "limit"
	BudgetSortPeriod    = "period"
)

var budgetSortColumns = map[string]string{
	BudgetSortStartDate: "start_date",
	BudgetSortLimit:     "limit_amount",
	BudgetSortPeriod:    "period",
}

// ValidBudgetSort reports whether field is an accepted budget sort field.
func ValidBudgetSort(field string) bool {
	_, ok := budgetSortColumns[field]
	return ok
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// NameContains matches rows whose column contains substr, ignoring case.
// LIKE wildcards in substr match literally. column must come from a whitelist.
func NameContains(column, substr string) func(db *gorm.DB) *gorm.DB {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(substr)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER("+column+") LIKE ? ESCAPE '\\'", pattern)
	}
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a RecordStore backed by db.
func NewGormStore(db *gorm.DB) RecordStore {
	return &gormStore{db: db}
}

// FindTransactions returns the owner's transactions ordered by date, then id.
func (s *gormStore) FindTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", ownerID)
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if len(filter.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", filter.CategoryIDs)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}
	if len(filter.Scopes) > 0 {
		q = q.Scopes(filter.Scopes...)
	}

	var txs []models.Transaction
	if err := q.Order("date ASC").Order("id ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return txs, nil
}

// FindBudgets returns the owner's budgets. An empty sort field orders by
// start date descending.
func (s *gormStore) FindBudgets(ctx context.Context, ownerID string, filter BudgetFilter, sort Sort) ([]models.Budget, error) {
	q := s.db.WithContext(ctx).Model(&models.Budget{}).Where("user_id = ?", ownerID)
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Period != nil {
		q = q.Where("period = ?", *filter.Period)
	}
	if filter.StartFrom != nil {
		q = q.Where("start_date >= ?", *filter.StartFrom)
	}
	if filter.EndTo != nil {
		q = q.Where("end_date <= ?", *filter.EndTo)
	}

	field := sort.Field
	desc := sort.Desc
	if field == "" {
		field, desc = BudgetSortStartDate, true
	}
	column, ok := budgetSortColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported budget sort field %q", sort.Field)
	}

	var budgets []models.Budget
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order("id ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}
	return budgets, nil
}

// FindCategories returns the owner's categories ordered by name.
func (s *gormStore) FindCategories(ctx context.Context, ownerID string, filter CategoryFilter) ([]models.Category, error) {
	q := s.db.WithContext(ctx).Model(&models.Category{}).Where("user_id = ?", ownerID)
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.NameContains != "" {
		q = q.Scopes(NameContains("name", filter.NameContains))
	}

	var categories []models.Category
	if err := q.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	return categories, nil
}
