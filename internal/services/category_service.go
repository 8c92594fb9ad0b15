package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/store"
)

var categorySortColumns = map[string]string{
	"name": "name",
	"type": "type",
}

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxCategoryNameLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "category name must be at most 50 characters")
	}
	return name, nil
}

func validCategoryType(t models.CategoryType) bool {
	return t == models.CategoryTypeIncome || t == models.CategoryTypeExpense
}

// nameTaken reports whether the owner already has a category with this name
// and type, ignoring excludeID.
func (s *categoryService) nameTaken(db *gorm.DB, userID, name string, categoryType models.CategoryType, excludeID string) (bool, error) {
	q := db.Model(&models.Category{}).
		Where("user_id = ? AND LOWER(name) = ? AND type = ?", userID, strings.ToLower(name), categoryType)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(ctx context.Context, userID, name string, categoryType models.CategoryType, description string) (*models.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}
	if !validCategoryType(categoryType) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be 'income' or 'expense'")
	}

	db := s.db.WithContext(ctx)
	taken, err := s.nameTaken(db, userID, name, categoryType, "")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if taken {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Type:        categoryType,
		Description: description,
	}
	if err := db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetUserCategories lists the user's categories. Defaults to name ascending.
func (s *categoryService) GetUserCategories(ctx context.Context, userID string, filter CategoryListFilter) ([]models.Category, error) {
	q := s.db.WithContext(ctx).Model(&models.Category{}).Where("user_id = ?", userID)
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Name != "" {
		q = q.Scopes(store.NameContains("name", filter.Name))
	}

	column, ok := categorySortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	q = q.Scopes(pagination.SortBy(column, filter.SortOrder == "desc"))

	categories := []models.Category{}
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	return findCategory(s.db.WithContext(ctx), userID, categoryID)
}

func findCategory(db *gorm.DB, userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// categoryReferenced reports whether any transaction or budget points at the category.
func categoryReferenced(db *gorm.DB, categoryID string) (bool, error) {
	var count int64
	if err := db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&models.Budget{}).Where("category_id = ?", categoryID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateCategory updates an existing category. Reserved categories accept
// only description changes; a type change is refused while the category is
// still referenced.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID string, update CategoryUpdate) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	category, err := findCategory(db, userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	name, categoryType := category.Name, category.Type

	if update.Name != nil {
		n, err := validateCategoryName(*update.Name)
		if err != nil {
			return nil, err
		}
		if n != category.Name {
			if category.IsReserved {
				return nil, apperrors.ErrReservedCategory
			}
			name = n
			updates["name"] = n
		}
	}
	if update.Type != nil && *update.Type != category.Type {
		if !validCategoryType(*update.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be 'income' or 'expense'")
		}
		if category.IsReserved {
			return nil, apperrors.ErrReservedCategory
		}
		inUse, err := categoryReferenced(db, category.ID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if inUse {
			return nil, apperrors.ErrCategoryInUse
		}
		categoryType = *update.Type
		updates["type"] = categoryType
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}

	if _, renamed := updates["name"]; renamed || updates["type"] != nil {
		taken, err := s.nameTaken(db, userID, name, categoryType, category.ID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if taken {
			return nil, apperrors.ErrDuplicateCategory
		}
	}

	if len(updates) > 0 {
		if err := db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return category, nil
}

// DeleteCategory removes a category after repointing its transactions and
// budgets to the owner's reserved category of the same type. All of it
// happens in one transaction.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	var moved struct{ transactions, budgets int64 }

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if category.IsReserved {
			return apperrors.ErrReservedCategory
		}

		var fallback models.Category
		if err := tx.Where("user_id = ? AND type = ? AND is_reserved = ?", userID, category.Type, true).
			First(&fallback).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUncategorizedMissing
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		res := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND category_id = ?", userID, category.ID).
			Update("category_id", fallback.ID)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		moved.transactions = res.RowsAffected

		res = tx.Model(&models.Budget{}).
			Where("user_id = ? AND category_id = ?", userID, category.ID).
			Update("category_id", fallback.ID)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		moved.budgets = res.RowsAffected

		if err := tx.Unscoped().Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Infow("category deleted",
		"user_id", userID,
		"category_id", categoryID,
		"transactions_reassigned", moved.transactions,
		"budgets_reassigned", moved.budgets,
	)
	return nil
}
