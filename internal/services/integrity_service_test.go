package services

import (
	"context"
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestDanglingReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("clean", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIntegrityService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, 1000, testutil.Date(2024, 1, 1), testutil.Date(2024, 1, 31))
		testutil.CreateTestTransaction(t, db, user.ID, cat.ID, models.TransactionTypeExpense, 100, testutil.Date(2024, 1, 2))

		report, err := svc.DanglingReferences(ctx)
		testutil.AssertNoError(t, err)
		if !report.Clean() {
			t.Errorf("expected clean report, got %+v", report)
		}
	})

	t.Run("finds_dangling_across_users", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewIntegrityService(db)

		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		aliceCat := testutil.CreateTestCategory(t, db, alice.ID, models.CategoryTypeExpense)
		bobCat := testutil.CreateTestCategory(t, db, bob.ID, models.CategoryTypeExpense)

		budget := testutil.CreateTestBudget(t, db, alice.ID, aliceCat.ID, 1000, testutil.Date(2024, 1, 1), testutil.Date(2024, 1, 31))
		tx := testutil.CreateTestTransaction(t, db, bob.ID, bobCat.ID, models.TransactionTypeExpense, 100, testutil.Date(2024, 1, 2))

		// Deleted tx referencing a missing category is not reported.
		stale := testutil.CreateTestTransaction(t, db, bob.ID, bobCat.ID, models.TransactionTypeExpense, 100, testutil.Date(2024, 1, 3))
		db.Delete(stale)

		db.Unscoped().Delete(aliceCat)
		db.Unscoped().Delete(bobCat)

		report, err := svc.DanglingReferences(ctx)
		testutil.AssertNoError(t, err)

		if len(report.Budgets) != 1 || report.Budgets[0].ID != budget.ID {
			t.Errorf("expected dangling budget %s, got %+v", budget.ID, report.Budgets)
		}
		if len(report.Transactions) != 1 || report.Transactions[0].ID != tx.ID {
			t.Fatalf("expected dangling transaction %s, got %+v", tx.ID, report.Transactions)
		}
		if report.Transactions[0].UserID != bob.ID {
			t.Errorf("expected owner %s, got %s", bob.ID, report.Transactions[0].UserID)
		}
	})
}
