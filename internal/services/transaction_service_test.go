package services

import (
	"testing"
	"time"

	"sikeu/internal/models"
	"sikeu/internal/pagination"
	"sikeu/internal/receipt"
	"sikeu/internal/testutil"

	"github.com/shopspring/decimal"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
}

func pageRequest(page, size int) pagination.PageRequest {
	return pagination.PageRequest{Page: page, PageSize: size}
}

func TestTransactionCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewTransactionService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	otherSchool := testutil.CreateTestSchool(t, db)
	super := testutil.CreateTestUser(t, db, models.RoleSuperAdmin, nil).Principal()
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()
	treasurer := testutil.CreateTestUser(t, db, models.RoleTreasurer, &school.ID).Principal()
	viewer := testutil.CreateTestUser(t, db, models.RoleUser, &school.ID).Principal()

	_, _, account := testutil.CreateTestCoaTree(t, db, models.CoaTypeRevenue)

	restricted := &models.CoaAccount{
		Code:               "9.9.1",
		Name:               "Restricted",
		SubCategoryID:      account.SubCategoryID,
		VisibleToTreasurer: false,
		IsActive:           true,
	}
	testutil.AssertNoError(t, db.Create(restricted).Error)

	inactive := &models.CoaAccount{
		Code:               "9.9.2",
		Name:               "Inactive",
		SubCategoryID:      account.SubCategoryID,
		VisibleToTreasurer: true,
		IsActive:           false,
	}
	testutil.AssertNoError(t, db.Create(inactive).Error)

	baseInput := func() TransactionInput {
		return TransactionInput{
			Type:         models.TransactionTypeIncome,
			Date:         date(2026, time.January, 5),
			Amount:       decimal.NewFromInt(250000),
			CoaAccountID: &account.ID,
			Description:  "SPP Januari",
			Counterparty: "Wali Murid",
		}
	}

	t.Run("assigns the first receipt of a period", func(t *testing.T) {
		txn, err := svc.Create(admin, baseInput())
		testutil.AssertNoError(t, err)

		if txn.ReceiptNumber != "KW-202601-001" {
			t.Errorf("receipt = %q, want %q", txn.ReceiptNumber, "KW-202601-001")
		}
		if txn.Status != models.TransactionStatusPaid {
			t.Errorf("default status = %q, want PAID", txn.Status)
		}
		if txn.PaymentMethod != models.PaymentMethodCash {
			t.Errorf("default payment method = %q, want CASH", txn.PaymentMethod)
		}
		if txn.SchoolID != school.ID {
			t.Errorf("transaction bound to %q, want principal's school", txn.SchoolID)
		}
	})

	t.Run("numbers are sequential within a period", func(t *testing.T) {
		second, err := svc.Create(treasurer, baseInput())
		testutil.AssertNoError(t, err)
		third, err := svc.Create(admin, baseInput())
		testutil.AssertNoError(t, err)

		if second.ReceiptNumber != "KW-202601-002" || third.ReceiptNumber != "KW-202601-003" {
			t.Errorf("got %q then %q, want 002 then 003", second.ReceiptNumber, third.ReceiptNumber)
		}
	})

	t.Run("periods number independently", func(t *testing.T) {
		input := baseInput()
		input.Date = date(2026, time.February, 1)
		txn, err := svc.Create(admin, input)
		testutil.AssertNoError(t, err)
		if txn.ReceiptNumber != "KW-202602-001" {
			t.Errorf("receipt = %q, want %q", txn.ReceiptNumber, "KW-202602-001")
		}
	})

	t.Run("schools number independently", func(t *testing.T) {
		input := baseInput()
		input.SchoolID = otherSchool.ID
		input.CoaAccountID = nil
		input.Category = "Sumbangan"
		txn, err := svc.Create(super, input)
		testutil.AssertNoError(t, err)
		if txn.ReceiptNumber != "KW-202601-001" {
			t.Errorf("receipt = %q, want %q", txn.ReceiptNumber, "KW-202601-001")
		}
	})

	t.Run("writes exactly one create audit entry", func(t *testing.T) {
		txn, err := svc.Create(admin, baseInput())
		testutil.AssertNoError(t, err)

		var count int64
		testutil.AssertNoError(t, db.Model(&models.AuditLog{}).
			Where("entity_type = ? AND entity_id = ? AND action = ?", "transaction", txn.ID, models.AuditActionCreate).
			Count(&count).Error)
		if count != 1 {
			t.Errorf("expected 1 CREATE audit entry, got %d", count)
		}
	})

	t.Run("rejects a non-positive amount", func(t *testing.T) {
		input := baseInput()
		input.Amount = decimal.Zero
		_, err := svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		input.Amount = decimal.NewFromInt(-50)
		_, err = svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects an unknown type", func(t *testing.T) {
		input := baseInput()
		input.Type = "TRANSFER"
		_, err := svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("requires an account or legacy category", func(t *testing.T) {
		input := baseInput()
		input.CoaAccountID = nil
		input.Category = ""
		_, err := svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("treasurer cannot post to a restricted account", func(t *testing.T) {
		input := baseInput()
		input.CoaAccountID = &restricted.ID
		_, err := svc.Create(treasurer, input)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("admin can post to a restricted account", func(t *testing.T) {
		input := baseInput()
		input.CoaAccountID = &restricted.ID
		_, err := svc.Create(admin, input)
		testutil.AssertNoError(t, err)
	})

	t.Run("inactive account is an invalid reference", func(t *testing.T) {
		input := baseInput()
		input.CoaAccountID = &inactive.ID
		_, err := svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_REFERENCE")
	})

	t.Run("missing account is an invalid reference", func(t *testing.T) {
		ghost := "does-not-exist"
		input := baseInput()
		input.CoaAccountID = &ghost
		_, err := svc.Create(admin, input)
		testutil.AssertAppError(t, err, "INVALID_REFERENCE")
	})

	t.Run("viewer role cannot create", func(t *testing.T) {
		_, err := svc.Create(viewer, baseInput())
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("constraint catches a duplicate receipt", func(t *testing.T) {
		// Inserting a receipt number that already exists for the school
		// simulates the losing side of an allocation race.
		dup := &models.Transaction{
			ReceiptNumber: "KW-202601-001",
			SchoolID:      school.ID,
			Type:          models.TransactionTypeIncome,
			Date:          date(2026, time.January, 5),
			Amount:        decimal.NewFromInt(100),
			Category:      "Race",
			PaymentMethod: models.PaymentMethodCash,
			Status:        models.TransactionStatusPaid,
			CreatedByID:   admin.ID,
		}
		err := db.Create(dup).Error
		if err == nil {
			t.Fatal("duplicate receipt insert succeeded")
		}
		if !receipt.IsConflict(err) {
			t.Errorf("IsConflict did not recognize %v", err)
		}
	})
}

func TestTransactionReadAndIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewTransactionService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	otherSchool := testutil.CreateTestSchool(t, db)
	super := testutil.CreateTestUser(t, db, models.RoleSuperAdmin, nil).Principal()
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()
	foreignAdmin := testutil.CreateTestUser(t, db, models.RoleAdmin, &otherSchool.ID).Principal()

	_, _, account := testutil.CreateTestCoaTree(t, db, models.CoaTypeRevenue)

	txn, err := svc.Create(admin, TransactionInput{
		Type:         models.TransactionTypeIncome,
		Date:         date(2026, time.March, 10),
		Amount:       decimal.NewFromInt(750000),
		CoaAccountID: &account.ID,
		Description:  "Dana BOS triwulan pertama",
		Counterparty: "Kemendikbud",
	})
	testutil.AssertNoError(t, err)

	t.Run("owner school reads its transaction", func(t *testing.T) {
		got, err := svc.Get(admin, txn.ID)
		testutil.AssertNoError(t, err)
		if got.CoaAccount == nil || got.CoaAccount.ID != account.ID {
			t.Error("COA account not resolved on read")
		}
	})

	t.Run("super admin reads any transaction", func(t *testing.T) {
		_, err := svc.Get(super, txn.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("foreign school sees not found, not forbidden", func(t *testing.T) {
		_, err := svc.Get(foreignAdmin, txn.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("missing id is not found", func(t *testing.T) {
		_, err := svc.Get(admin, "does-not-exist")
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("receipt view resolves school and account names", func(t *testing.T) {
		view, err := svc.ReceiptView(admin, txn.ID)
		testutil.AssertNoError(t, err)
		if view.ReceiptNumber != txn.ReceiptNumber {
			t.Errorf("view receipt = %q, want %q", view.ReceiptNumber, txn.ReceiptNumber)
		}
		if view.SchoolName != school.Name {
			t.Errorf("view school = %q, want %q", view.SchoolName, school.Name)
		}
		if view.AccountName != account.Name {
			t.Errorf("view account = %q, want %q", view.AccountName, account.Name)
		}
	})

	t.Run("receipt view falls back to the legacy category", func(t *testing.T) {
		legacy, err := svc.Create(admin, TransactionInput{
			Type:         models.TransactionTypeExpense,
			Date:         date(2026, time.March, 11),
			Amount:       decimal.NewFromInt(50000),
			Category:     "ATK",
			Counterparty: "Toko Buku",
		})
		testutil.AssertNoError(t, err)

		view, err := svc.ReceiptView(admin, legacy.ID)
		testutil.AssertNoError(t, err)
		if view.AccountName != "ATK" {
			t.Errorf("view account = %q, want legacy category", view.AccountName)
		}
	})
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewTransactionService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()
	treasurer := testutil.CreateTestUser(t, db, models.RoleTreasurer, &school.ID).Principal()

	_, _, account := testutil.CreateTestCoaTree(t, db, models.CoaTypeRevenue)

	restricted := &models.CoaAccount{
		Code:               "8.8.1",
		Name:               "Restricted",
		SubCategoryID:      account.SubCategoryID,
		VisibleToTreasurer: false,
		IsActive:           true,
	}
	testutil.AssertNoError(t, db.Create(restricted).Error)

	create := func(t *testing.T) *models.Transaction {
		t.Helper()
		txn, err := svc.Create(admin, TransactionInput{
			Type:         models.TransactionTypeIncome,
			Date:         date(2026, time.April, 2),
			Amount:       decimal.NewFromInt(300000),
			CoaAccountID: &account.ID,
			Description:  "Iuran komite",
		})
		testutil.AssertNoError(t, err)
		return txn
	}

	t.Run("moving the date never renumbers", func(t *testing.T) {
		txn := create(t)
		original := txn.ReceiptNumber

		newDate := date(2026, time.July, 20)
		_, err := svc.Update(admin, txn.ID, TransactionPatch{Date: &newDate})
		testutil.AssertNoError(t, err)

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", txn.ID).Error)
		if reloaded.ReceiptNumber != original {
			t.Errorf("receipt changed from %q to %q after date update", original, reloaded.ReceiptNumber)
		}
		if reloaded.Date.UTC().Month() != time.July {
			t.Errorf("date not updated, got %v", reloaded.Date)
		}
	})

	t.Run("changing the receipt number is rejected", func(t *testing.T) {
		txn := create(t)
		forged := "KW-202604-999"
		_, err := svc.Update(admin, txn.ID, TransactionPatch{ReceiptNumber: &forged})
		testutil.AssertAppError(t, err, "RECEIPT_IMMUTABLE")
	})

	t.Run("restating the same receipt number is a no-op", func(t *testing.T) {
		txn := create(t)
		same := txn.ReceiptNumber
		_, err := svc.Update(admin, txn.ID, TransactionPatch{ReceiptNumber: &same})
		testutil.AssertNoError(t, err)
	})

	t.Run("update re-validates the COA reference", func(t *testing.T) {
		txn := create(t)
		_, err := svc.Update(treasurer, txn.ID, TransactionPatch{CoaAccountID: &restricted.ID})
		testutil.AssertAppError(t, err, "FORBIDDEN")

		_, err = svc.Update(admin, txn.ID, TransactionPatch{CoaAccountID: &restricted.ID})
		testutil.AssertNoError(t, err)
	})

	t.Run("update rejects a non-positive amount", func(t *testing.T) {
		txn := create(t)
		zero := decimal.Zero
		_, err := svc.Update(admin, txn.ID, TransactionPatch{Amount: &zero})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("update writes an audit entry", func(t *testing.T) {
		txn := create(t)
		note := "Revisi uraian"
		_, err := svc.Update(admin, txn.ID, TransactionPatch{Description: &note})
		testutil.AssertNoError(t, err)

		var count int64
		testutil.AssertNoError(t, db.Model(&models.AuditLog{}).
			Where("entity_type = ? AND entity_id = ? AND action = ?", "transaction", txn.ID, models.AuditActionUpdate).
			Count(&count).Error)
		if count != 1 {
			t.Errorf("expected 1 UPDATE audit entry, got %d", count)
		}
	})

	t.Run("treasurer cannot delete", func(t *testing.T) {
		txn := create(t)
		err := svc.Delete(treasurer, txn.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("admin delete removes the row and leaves the audit trace", func(t *testing.T) {
		txn := create(t)
		testutil.AssertNoError(t, svc.Delete(admin, txn.ID))

		var rows int64
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).Where("id = ?", txn.ID).Count(&rows).Error)
		if rows != 0 {
			t.Error("transaction still present after delete")
		}

		var audits int64
		testutil.AssertNoError(t, db.Model(&models.AuditLog{}).
			Where("entity_type = ? AND entity_id = ? AND action = ?", "transaction", txn.ID, models.AuditActionDelete).
			Count(&audits).Error)
		if audits != 1 {
			t.Errorf("expected 1 DELETE audit entry, got %d", audits)
		}
	})
}

func TestTransactionListAndSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewTransactionService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()

	_, _, account := testutil.CreateTestCoaTree(t, db, models.CoaTypeRevenue)

	mk := func(txType models.TransactionType, amount int64, status models.TransactionStatus, day int, desc, counterparty string) {
		t.Helper()
		_, err := svc.Create(admin, TransactionInput{
			Type:         txType,
			Date:         date(2026, time.May, day),
			Amount:       decimal.NewFromInt(amount),
			CoaAccountID: &account.ID,
			Description:  desc,
			Counterparty: counterparty,
			Status:       status,
		})
		testutil.AssertNoError(t, err)
	}

	mk(models.TransactionTypeIncome, 1000, models.TransactionStatusPaid, 3, "SPP Mei", "Wali Murid")
	mk(models.TransactionTypeExpense, 400, models.TransactionStatusPaid, 7, "Pembelian ATK", "Toko Jaya")
	mk(models.TransactionTypeIncome, 500, models.TransactionStatusPending, 12, "Sumbangan", "Donatur")

	t.Run("list is ordered by date descending", func(t *testing.T) {
		page, err := svc.List(admin, "", pageRequest(1, 20), TransactionFilter{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 {
			t.Fatalf("expected 3 transactions, got %d", page.TotalItems)
		}
		if !page.Data[0].Date.After(page.Data[1].Date) || !page.Data[1].Date.After(page.Data[2].Date) {
			t.Error("list not ordered by date descending")
		}
	})

	t.Run("list filters by type", func(t *testing.T) {
		expense := models.TransactionTypeExpense
		page, err := svc.List(admin, "", pageRequest(1, 20), TransactionFilter{Type: &expense})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].Description != "Pembelian ATK" {
			t.Errorf("type filter returned %d rows", page.TotalItems)
		}
	})

	t.Run("search matches case-insensitively", func(t *testing.T) {
		page, err := svc.List(admin, "", pageRequest(1, 20), TransactionFilter{Search: "toko JAYA"})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Fatalf("counterparty search returned %d rows", page.TotalItems)
		}

		page, err = svc.List(admin, "", pageRequest(1, 20), TransactionFilter{Search: account.Name})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 {
			t.Errorf("account-name search returned %d rows, want all", page.TotalItems)
		}
	})

	t.Run("list honors the period filter", func(t *testing.T) {
		start := date(2026, time.May, 5)
		end := date(2026, time.May, 10)
		page, err := svc.List(admin, "", pageRequest(1, 20), TransactionFilter{PeriodStart: &start, PeriodEnd: &end})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].Description != "Pembelian ATK" {
			t.Errorf("period filter returned %d rows", page.TotalItems)
		}
	})

	t.Run("pagination slices the ledger", func(t *testing.T) {
		page, err := svc.List(admin, "", pageRequest(2, 2), TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 1 || page.TotalPages != 2 {
			t.Errorf("page 2 of size 2 returned %d rows, %d pages", len(page.Data), page.TotalPages)
		}
	})

	t.Run("summary sums only paid rows but counts every status", func(t *testing.T) {
		summary, err := svc.Summary(admin, "", nil, nil)
		testutil.AssertNoError(t, err)

		if !summary.TotalIncome.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("total income = %s, want 1000", summary.TotalIncome)
		}
		if !summary.TotalExpense.Equal(decimal.NewFromInt(400)) {
			t.Errorf("total expense = %s, want 400", summary.TotalExpense)
		}
		if !summary.Surplus.Equal(decimal.NewFromInt(600)) {
			t.Errorf("surplus = %s, want 600", summary.Surplus)
		}
		if summary.TransactionCount != 3 {
			t.Errorf("transaction count = %d, want 3", summary.TransactionCount)
		}
	})

	t.Run("summary of an empty period is zero", func(t *testing.T) {
		start := date(2027, time.January, 1)
		end := date(2027, time.December, 31)
		summary, err := svc.Summary(admin, "", &start, &end)
		testutil.AssertNoError(t, err)

		if !summary.TotalIncome.IsZero() || !summary.TotalExpense.IsZero() || !summary.Surplus.IsZero() {
			t.Errorf("empty period summary not zero: %+v", summary)
		}
		if summary.TransactionCount != 0 {
			t.Errorf("empty period count = %d", summary.TransactionCount)
		}
	})

	t.Run("export returns the full filtered ledger", func(t *testing.T) {
		rows, err := svc.ListForExport(admin, "", TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(rows) != 3 {
			t.Errorf("export returned %d rows, want 3", len(rows))
		}
	})
}
