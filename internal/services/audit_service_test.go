package services

import (
	"encoding/json"
	"testing"

	"sikeu/internal/models"
	"sikeu/internal/testutil"
)

func TestAuditRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewAuditService(db)

	school := testutil.CreateTestSchool(t, db)
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID)

	t.Run("record serializes details as JSON", func(t *testing.T) {
		err := svc.Record(db, models.AuditActionCreate, "transaction", "txn-1",
			map[string]any{"receipt_number": "KW-202601-001", "amount": "250000"}, admin.ID, &school.ID)
		testutil.AssertNoError(t, err)

		var entry models.AuditLog
		testutil.AssertNoError(t, db.First(&entry, "entity_id = ?", "txn-1").Error)

		var details map[string]any
		testutil.AssertNoError(t, json.Unmarshal([]byte(entry.Details), &details))
		if details["receipt_number"] != "KW-202601-001" {
			t.Errorf("details = %s", entry.Details)
		}
	})

	t.Run("record rolls back with the enclosing transaction", func(t *testing.T) {
		tx := db.Begin()
		testutil.AssertNoError(t, svc.Record(tx, models.AuditActionDelete, "transaction", "txn-2", nil, admin.ID, &school.ID))
		tx.Rollback()

		var count int64
		testutil.AssertNoError(t, db.Model(&models.AuditLog{}).Where("entity_id = ?", "txn-2").Count(&count).Error)
		if count != 0 {
			t.Error("audit entry survived a rolled-back transaction")
		}
	})
}

func TestAuditList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewAuditService(db)

	school := testutil.CreateTestSchool(t, db)
	otherSchool := testutil.CreateTestSchool(t, db)
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID)
	treasurer := testutil.CreateTestUser(t, db, models.RoleTreasurer, &school.ID)

	seed := func(entityType, entityID, userID string, schoolID *string) {
		t.Helper()
		testutil.AssertNoError(t, svc.Record(db, models.AuditActionCreate, entityType, entityID, nil, userID, schoolID))
	}

	seed("transaction", "txn-1", admin.ID, &school.ID)
	seed("transaction", "txn-2", treasurer.ID, &school.ID)
	seed("coa_account", "acc-1", admin.ID, &school.ID)
	seed("transaction", "txn-3", admin.ID, &otherSchool.ID)

	t.Run("admin lists its school's trail", func(t *testing.T) {
		page, err := svc.List(admin.Principal(), school.ID, pageRequest(1, 20), AuditFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 {
			t.Errorf("expected 3 entries, got %d", page.TotalItems)
		}
	})

	t.Run("entity type filter", func(t *testing.T) {
		page, err := svc.List(admin.Principal(), school.ID, pageRequest(1, 20), AuditFilter{EntityType: "coa_account"})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].EntityID != "acc-1" {
			t.Errorf("entity filter returned %d entries", page.TotalItems)
		}
	})

	t.Run("user filter", func(t *testing.T) {
		page, err := svc.List(admin.Principal(), school.ID, pageRequest(1, 20), AuditFilter{UserID: treasurer.ID})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].EntityID != "txn-2" {
			t.Errorf("user filter returned %d entries", page.TotalItems)
		}
	})

	t.Run("treasurer cannot view the trail", func(t *testing.T) {
		_, err := svc.List(treasurer.Principal(), school.ID, pageRequest(1, 20), AuditFilter{})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("foreign trail is masked", func(t *testing.T) {
		_, err := svc.List(admin.Principal(), otherSchool.ID, pageRequest(1, 20), AuditFilter{})
		testutil.AssertAppError(t, err, "NOT_FOUND")
	})
}
