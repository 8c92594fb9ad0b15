package services

import (
	"context"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/pagination"
	"fintrack/internal/store"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// ProfileUpdate carries the profile fields that may change. Nil fields are
// left as is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Avatar    *string
}

// CategoryListFilter holds optional filter and sort parameters for listing categories.
type CategoryListFilter struct {
	Type      *models.CategoryType
	Name      string
	SortBy    string
	SortOrder string
}

// CategoryUpdate carries the fields of a category that may change.
type CategoryUpdate struct {
	Name        *string
	Type        *models.CategoryType
	Description *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name string, categoryType models.CategoryType, description string) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, filter CategoryListFilter) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, update CategoryUpdate) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// TransactionInput carries the fields of a new transaction.
type TransactionInput struct {
	Type        models.TransactionType
	Amount      money.Amount
	CategoryID  string
	Description string
	Date        time.Time
	Recurring   bool
}

// TransactionUpdate carries the fields of a transaction that may change.
type TransactionUpdate struct {
	Type        *models.TransactionType
	Amount      *money.Amount
	CategoryID  *string
	Description *string
	Date        *time.Time
	Recurring   *bool
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	SortBy     string
	SortOrder  string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, input TransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// EnrichedBudget is a budget with its spending against the window.
type EnrichedBudget struct {
	models.Budget
	CategoryName string       `json:"category_name,omitempty"`
	ActualSpent  money.Amount `json:"actual_spent"`
	Remaining    money.Amount `json:"remaining"`
	IsOverBudget bool         `json:"is_over_budget"`
}

// BudgetEvaluator computes actual spend for budgets.
type BudgetEvaluator interface {
	EvaluateBudgets(ctx context.Context, ownerID string, budgets []models.Budget) ([]EnrichedBudget, error)
}

// BudgetInput carries the fields of a new budget.
type BudgetInput struct {
	CategoryID string
	Limit      money.Amount
	Period     models.BudgetPeriod
	StartDate  time.Time
	EndDate    time.Time
}

// BudgetUpdate carries the fields of a budget that may change.
type BudgetUpdate struct {
	CategoryID *string
	Limit      *money.Amount
	Period     *models.BudgetPeriod
	StartDate  *time.Time
	EndDate    *time.Time
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, filter store.BudgetFilter, sort store.Sort) ([]EnrichedBudget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*EnrichedBudget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	OverBudgetAlerts(ctx context.Context, userID string, tx *models.Transaction) ([]EnrichedBudget, error)
}

// ReportBuilder produces the chart and summary data for a user.
type ReportBuilder interface {
	BuildReport(ctx context.Context, ownerID string, mode ReportMode, year int, now time.Time) (*Report, error)
}

// IntegrityServicer finds records whose category no longer resolves.
type IntegrityServicer interface {
	DanglingReferences(ctx context.Context) (*IntegrityReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
