package models

import "fmt"

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// MaxCategoryNameLength bounds Category.Name.
const MaxCategoryNameLength = 50

// Category groups transactions and budgets. Name is unique per owner and type.
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;uniqueIndex:idx_categories_owner_name_type" json:"user_id"`
	Name        string       `gorm:"size:50;not null;uniqueIndex:idx_categories_owner_name_type" json:"name"`
	Type        CategoryType `gorm:"not null;uniqueIndex:idx_categories_owner_name_type" json:"type"`
	Description string       `json:"description"`
	IsReserved  bool         `gorm:"default:false" json:"is_reserved"`
}

// UncategorizedName returns the display name of the reserved fallback
// category for t, e.g. "Uncategorized (Expense)".
func UncategorizedName(t CategoryType) string {
	switch t {
	case CategoryTypeIncome:
		return "Uncategorized (Income)"
	case CategoryTypeExpense:
		return "Uncategorized (Expense)"
	}
	return fmt.Sprintf("Uncategorized (%s)", t)
}

// ReservedCategories returns the fallback categories every user owns.
func ReservedCategories(userID string) []Category {
	return []Category{
		{UserID: userID, Name: UncategorizedName(CategoryTypeIncome), Type: CategoryTypeIncome, IsReserved: true},
		{UserID: userID, Name: UncategorizedName(CategoryTypeExpense), Type: CategoryTypeExpense, IsReserved: true},
	}
}
