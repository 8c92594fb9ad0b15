package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
)

// DanglingReference is a record whose category no longer resolves.
type DanglingReference struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
}

// IntegrityReport lists dangling category references across all users.
type IntegrityReport struct {
	Budgets      []DanglingReference `json:"budgets"`
	Transactions []DanglingReference `json:"transactions"`
	CheckedAt    time.Time           `json:"checked_at"`
}

// Clean reports whether no dangling references were found.
func (r *IntegrityReport) Clean() bool {
	return len(r.Budgets) == 0 && len(r.Transactions) == 0
}

// integrityService scans for records pointing at missing categories.
type integrityService struct {
	db *gorm.DB
}

// NewIntegrityService creates a new IntegrityServicer.
func NewIntegrityService(db *gorm.DB) IntegrityServicer {
	return &integrityService{db: db}
}

// DanglingReferences returns live budgets and transactions whose category
// row is missing or soft-deleted.
func (s *integrityService) DanglingReferences(ctx context.Context) (*IntegrityReport, error) {
	db := s.db.WithContext(ctx)

	budgets, err := danglingIn(db, "budgets")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	transactions, err := danglingIn(db, "transactions")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	report := &IntegrityReport{
		Budgets:      budgets,
		Transactions: transactions,
		CheckedAt:    time.Now().UTC(),
	}
	if !report.Clean() {
		logger.FromContext(ctx).Warnw("dangling category references found",
			"budgets", len(budgets),
			"transactions", len(transactions),
		)
	}
	return report, nil
}

// danglingIn finds rows of table whose category_id has no live category.
// table is always a constant from this package.
func danglingIn(db *gorm.DB, table string) ([]DanglingReference, error) {
	refs := []DanglingReference{}
	err := db.Table(table+" AS r").
		Select("r.id AS id, r.user_id AS user_id, r.category_id AS category_id").
		Joins("LEFT JOIN categories c ON c.id = r.category_id AND c.deleted_at IS NULL").
		Where("r.deleted_at IS NULL AND c.id IS NULL").
		Order("r.user_id ASC").Order("r.id ASC").
		Scan(&refs).Error
	return refs, err
}
