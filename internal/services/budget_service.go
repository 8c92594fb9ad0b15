package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/store"
)

// budgetService handles budget-related business logic. Reads go through the
// record store and are enriched by the evaluator.
type budgetService struct {
	db        *gorm.DB
	store     store.RecordStore
	evaluator BudgetEvaluator
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, rs store.RecordStore, evaluator BudgetEvaluator) BudgetServicer {
	return &budgetService{db: db, store: rs, evaluator: evaluator}
}

func validBudgetPeriod(p models.BudgetPeriod) bool {
	switch p {
	case models.BudgetPeriodWeekly, models.BudgetPeriodMonthly, models.BudgetPeriodYearly:
		return true
	}
	return false
}

func validateBudgetWindow(start, end time.Time) error {
	if !models.DateOnly(start).Before(models.DateOnly(end)) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "start date must be before end date")
	}
	return nil
}

// checkBudgetCategory verifies the category belongs to the user and is an
// expense category.
func checkBudgetCategory(db *gorm.DB, userID, categoryID string) error {
	category, err := findCategory(db, userID, categoryID)
	if err != nil {
		return err
	}
	if category.Type != models.CategoryTypeExpense {
		return apperrors.WithMessage(apperrors.ErrCategoryTypeMismatch, "budgets can only track expense categories")
	}
	return nil
}

// CreateBudget creates a new budget for an expense category.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error) {
	if !input.Limit.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
	}
	if !validBudgetPeriod(input.Period) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be one of weekly, monthly, yearly")
	}
	if err := validateBudgetWindow(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := checkBudgetCategory(db, userID, input.CategoryID); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: input.CategoryID,
		Limit:      input.Limit,
		Period:     input.Period,
		StartDate:  models.DateOnly(input.StartDate),
		EndDate:    models.DateOnly(input.EndDate),
	}
	if err := db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// GetUserBudgets lists the user's budgets with their actual spend.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, filter store.BudgetFilter, sort store.Sort) ([]EnrichedBudget, error) {
	if filter.StartFrom != nil && filter.EndTo != nil && filter.StartFrom.After(*filter.EndTo) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date must not be after end_date")
	}
	if sort.Field != "" && !store.ValidBudgetSort(sort.Field) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "sort_by must be one of startdate, limit, period")
	}

	budgets, err := s.store.FindBudgets(ctx, userID, filter, sort)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}
	return s.evaluator.EvaluateBudgets(ctx, userID, budgets)
}

func (s *budgetService) findBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// GetBudgetByID returns one budget with its actual spend.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*EnrichedBudget, error) {
	budget, err := s.findBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	enriched, err := s.evaluator.EvaluateBudgets(ctx, userID, []models.Budget{*budget})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// UpdateBudget updates an existing budget's fields. The resulting window
// must still be non-empty.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.findBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := make(map[string]interface{})
	start, end := budget.StartDate, budget.EndDate

	if update.CategoryID != nil {
		if err := checkBudgetCategory(db, userID, *update.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *update.CategoryID
	}
	if update.Limit != nil {
		if !update.Limit.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
		}
		updates["limit_amount"] = *update.Limit
	}
	if update.Period != nil {
		if !validBudgetPeriod(*update.Period) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be one of weekly, monthly, yearly")
		}
		updates["period"] = *update.Period
	}
	if update.StartDate != nil {
		start = models.DateOnly(*update.StartDate)
		updates["start_date"] = start
	}
	if update.EndDate != nil {
		end = models.DateOnly(*update.EndDate)
		updates["end_date"] = end
	}
	if err := validateBudgetWindow(start, end); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.findBudget(ctx, userID, budgetID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// OverBudgetAlerts returns the budgets of tx's category whose window
// contains tx's date and which are over their limit. Income transactions
// never raise alerts.
func (s *budgetService) OverBudgetAlerts(ctx context.Context, userID string, tx *models.Transaction) ([]EnrichedBudget, error) {
	alerts := []EnrichedBudget{}
	if tx == nil || tx.Type != models.TransactionTypeExpense {
		return alerts, nil
	}

	candidates, err := s.store.FindBudgets(ctx, userID, store.BudgetFilter{CategoryID: &tx.CategoryID}, store.Sort{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	covering := candidates[:0]
	for _, b := range candidates {
		if b.Contains(tx.Date) {
			covering = append(covering, b)
		}
	}
	if len(covering) == 0 {
		return alerts, nil
	}

	enriched, err := s.evaluator.EvaluateBudgets(ctx, userID, covering)
	if err != nil {
		return nil, err
	}
	for _, b := range enriched {
		if b.IsOverBudget {
			alerts = append(alerts, b)
		}
	}
	return alerts, nil
}
