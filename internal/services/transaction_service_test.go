package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/money"
	"fintrack/internal/pagination"
	"fintrack/internal/testutil"
)

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("valid_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		tx, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{
			Type:        models.TransactionTypeExpense,
			Amount:      money.FromUnits(4500),
			CategoryID:  cat.ID,
			Description: "  Weekly shop ",
			Date:        time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC),
			Recurring:   true,
		})
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected transaction ID to be assigned")
		}
		testutil.AssertAmount(t, "amount", tx.Amount, 4500)
		if !tx.Date.Equal(testutil.Date(2024, 3, 10)) {
			t.Errorf("expected date truncated to midnight UTC, got %s", tx.Date)
		}
		if tx.Description != "Weekly shop" {
			t.Errorf("expected trimmed description, got %q", tx.Description)
		}
		if !tx.Recurring {
			t.Error("expected recurring flag to be stored")
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		valid := TransactionInput{
			Type:       models.TransactionTypeExpense,
			Amount:     money.FromUnits(100),
			CategoryID: cat.ID,
			Date:       testutil.Date(2024, 1, 1),
		}
		tests := []struct {
			name   string
			mutate func(in *TransactionInput)
		}{
			{"zero_amount", func(in *TransactionInput) { in.Amount = 0 }},
			{"negative_amount", func(in *TransactionInput) { in.Amount = money.FromUnits(-100) }},
			{"bad_type", func(in *TransactionInput) { in.Type = "transfer" }},
			{"missing_category", func(in *TransactionInput) { in.CategoryID = "" }},
			{"description_too_long", func(in *TransactionInput) { in.Description = strings.Repeat("d", 201) }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := valid
				tt.mutate(&in)
				_, err := svc.CreateTransaction(ctx, user.ID, in)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}
	})

	t.Run("category_type_mismatch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		salary := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

		_, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{
			Type:       models.TransactionTypeExpense,
			Amount:     money.FromUnits(100),
			CategoryID: salary.ID,
		})
		testutil.AssertAppError(t, err, "CATEGORY_TYPE_MISMATCH")
	})

	t.Run("foreign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)

		_, err := svc.CreateTransaction(ctx, user.ID, TransactionInput{
			Type:       models.TransactionTypeExpense,
			Amount:     money.FromUnits(100),
			CategoryID: cat.ID,
		})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetUserTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	salary := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

	t1 := testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeExpense, 1500, testutil.Date(2024, 3, 1))
	t2 := testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeExpense, 900, testutil.Date(2024, 3, 15))
	t3 := testutil.CreateTestTransaction(t, db, user.ID, salary.ID, models.TransactionTypeIncome, 300000, testutil.Date(2024, 3, 31))
	t4 := testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeExpense, 2000, testutil.Date(2024, 4, 2))
	otherCat := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)
	testutil.CreateTestTransaction(t, db, other.ID, otherCat.ID, models.TransactionTypeExpense, 100, testutil.Date(2024, 3, 2))

	expense := models.TransactionTypeExpense
	from, to := testutil.Date(2024, 3, 1), testutil.Date(2024, 3, 31)

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"default_date_desc", TransactionFilter{}, []string{t4.ID, t3.ID, t2.ID, t1.ID}},
		{"date_asc", TransactionFilter{SortOrder: "asc"}, []string{t1.ID, t2.ID, t3.ID, t4.ID}},
		{"amount_desc", TransactionFilter{SortBy: "amount"}, []string{t3.ID, t4.ID, t1.ID, t2.ID}},
		{"type_filter", TransactionFilter{Type: &expense, SortOrder: "asc"}, []string{t1.ID, t2.ID, t4.ID}},
		{"category_filter", TransactionFilter{CategoryID: &salary.ID}, []string{t3.ID}},
		{"inclusive_date_range", TransactionFilter{FromDate: &from, ToDate: &to, SortOrder: "asc"}, []string{t1.ID, t2.ID, t3.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.GetUserTransactions(ctx, user.ID, pagination.PageRequest{}, tt.filter)
			testutil.AssertNoError(t, err)

			if result.TotalItems != int64(len(tt.want)) {
				t.Fatalf("expected %d items, got %d", len(tt.want), result.TotalItems)
			}
			for i, id := range tt.want {
				if result.Data[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, result.Data[i].ID)
				}
			}
		})
	}

	t.Run("pagination", func(t *testing.T) {
		result, err := svc.GetUserTransactions(ctx, user.ID, pagination.PageRequest{Page: 2, PageSize: 3}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if result.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", result.TotalPages)
		}
		if len(result.Data) != 1 || result.Data[0].ID != t1.ID {
			t.Errorf("expected only the oldest transaction on page 2, got %d items", len(result.Data))
		}
	})
}

func TestGetTransactionByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		tx, err := svc.GetTransactionByID(ctx, user.ID, created.ID)
		testutil.AssertNoError(t, err)
		if tx.ID != created.ID {
			t.Errorf("expected %s, got %s", created.ID, tx.ID)
		}
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		_, err := svc.GetTransactionByID(ctx, other.ID, created.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("amount_and_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		amount := money.FromUnits(2550)
		date := time.Date(2024, 2, 9, 23, 59, 0, 0, time.UTC)
		_, err := svc.UpdateTransaction(ctx, user.ID, created.ID, TransactionUpdate{Amount: &amount, Date: &date})
		testutil.AssertNoError(t, err)

		stored, err := svc.GetTransactionByID(ctx, user.ID, created.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertAmount(t, "amount", stored.Amount, 2550)
		if !stored.Date.Equal(testutil.Date(2024, 2, 9)) {
			t.Errorf("expected 2024-02-09, got %s", stored.Date)
		}
	})

	t.Run("type_change_requires_matching_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		salary := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
		created := testutil.CreateTestTransaction(t, db, user.ID, food.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		income := models.TransactionTypeIncome
		_, err := svc.UpdateTransaction(ctx, user.ID, created.ID, TransactionUpdate{Type: &income})
		testutil.AssertAppError(t, err, "CATEGORY_TYPE_MISMATCH")

		_, err = svc.UpdateTransaction(ctx, user.ID, created.ID, TransactionUpdate{Type: &income, CategoryID: &salary.ID})
		testutil.AssertNoError(t, err)
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		zero := money.FromUnits(0)
		_, err := svc.UpdateTransaction(ctx, user.ID, created.ID, TransactionUpdate{Amount: &zero})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)

		desc := "x"
		_, err := svc.UpdateTransaction(ctx, user.ID, missingID, TransactionUpdate{Description: &desc})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		testutil.AssertNoError(t, svc.DeleteTransaction(ctx, user.ID, created.ID))

		_, err := svc.GetTransactionByID(ctx, user.ID, created.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		created := testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 1000, testutil.Date(2024, 2, 2))

		err := svc.DeleteTransaction(ctx, other.ID, created.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}
