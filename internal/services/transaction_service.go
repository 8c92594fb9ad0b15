package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

var transactionSortColumns = map[string]string{
	"date":   "date",
	"amount": "amount",
	"type":   "type",
}

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

func validTransactionType(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome || t == models.TransactionTypeExpense
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > models.MaxDescriptionLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "description must be at most 200 characters")
	}
	return description, nil
}

// checkCategory verifies the category belongs to the user and accepts
// transactions of txType.
func checkCategory(db *gorm.DB, userID, categoryID string, txType models.TransactionType) error {
	category, err := findCategory(db, userID, categoryID)
	if err != nil {
		return err
	}
	if category.Type != txType.CategoryType() {
		return apperrors.WithMessage(apperrors.ErrCategoryTypeMismatch,
			"category type "+string(category.Type)+" does not match transaction type "+string(txType))
	}
	return nil
}

// CreateTransaction records a new income or expense entry.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, input TransactionInput) (*models.Transaction, error) {
	if !validTransactionType(input.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type must be 'income' or 'expense'")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.CategoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category ID is required")
	}
	description, err := validateDescription(input.Description)
	if err != nil {
		return nil, err
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	db := s.db.WithContext(ctx)
	if err := checkCategory(db, userID, input.CategoryID, input.Type); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: description,
		Date:        models.DateOnly(date),
		Recurring:   input.Recurring,
	}
	if err := db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetUserTransactions returns one page of the user's transactions.
// Defaults to date descending.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	column, ok := transactionSortColumns[filter.SortBy]
	if !ok {
		column = "date"
	}
	desc := filter.SortOrder != "asc"

	var transactions []models.Transaction
	if err := base.Scopes(pagination.SortBy(column, desc), pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", models.DateOnly(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", models.DateOnly(*f.ToDate))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the non-nil fields of update. The resulting
// type and category must still agree.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	txType, categoryID := transaction.Type, transaction.CategoryID

	if update.Type != nil {
		if !validTransactionType(*update.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type must be 'income' or 'expense'")
		}
		txType = *update.Type
		updates["type"] = txType
	}
	if update.CategoryID != nil {
		categoryID = *update.CategoryID
		updates["category_id"] = categoryID
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Description != nil {
		description, err := validateDescription(*update.Description)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if update.Date != nil {
		updates["date"] = models.DateOnly(*update.Date)
	}
	if update.Recurring != nil {
		updates["recurring"] = *update.Recurring
	}

	db := s.db.WithContext(ctx)
	if update.Type != nil || update.CategoryID != nil {
		if err := checkCategory(db, userID, categoryID, txType); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
