package services

import (
	"context"
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	ctx := context.Background()

	t.Run("records_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, user.ID, AuditActionUpdate, "budget", "b-1", "10.0.0.1", map[string]interface{}{"limit": "45.00"})

		var entry models.AuditLog
		if err := db.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
			t.Fatalf("expected audit entry: %v", err)
		}
		if entry.Action != AuditActionUpdate || entry.ResourceType != "budget" || entry.ResourceID != "b-1" {
			t.Errorf("unexpected entry: %+v", entry)
		}
		if entry.Changes != `{"limit":"45.00"}` {
			t.Errorf("unexpected changes %q", entry.Changes)
		}
	})

	t.Run("nil_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, user.ID, AuditActionDelete, "category", "c-1", "", nil)

		var entry models.AuditLog
		if err := db.Where("user_id = ?", user.ID).First(&entry).Error; err != nil {
			t.Fatalf("expected audit entry: %v", err)
		}
		if entry.Changes != "" {
			t.Errorf("expected empty changes, got %q", entry.Changes)
		}
	})
}
