package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sikeu/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var fixtureCounter atomic.Int64

func nextID() int64 { return fixtureCounter.Add(1) }

// CreateTestSchool creates a school with a unique name.
func CreateTestSchool(t *testing.T, db *gorm.DB) *models.School {
	t.Helper()

	school := &models.School{
		Name:          fmt.Sprintf("SD Test %d", nextID()),
		Address:       "Jl. Pendidikan No. 1",
		Email:         fmt.Sprintf("school%d@example.com", nextID()),
		PrincipalName: "Test Principal",
	}
	if err := db.Create(school).Error; err != nil {
		t.Fatalf("failed to create test school: %v", err)
	}
	return school
}

// CreateTestUser creates an active user with the given role bound to the
// given school. Pass nil schoolID only for SUPER_ADMIN users.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role, schoolID *string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", nextID()),
		Password: string(hashed),
		Name:     "Test User",
		Role:     role,
		SchoolID: schoolID,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCoaTree creates a category, sub-category, and account chain
// of the given type, all active and treasurer-visible.
func CreateTestCoaTree(t *testing.T, db *gorm.DB, coaType models.CoaType) (*models.CoaCategory, *models.CoaSubCategory, *models.CoaAccount) {
	t.Helper()

	n := nextID()
	category := &models.CoaCategory{
		Code:     fmt.Sprintf("%d", 1000+n),
		Name:     "Test Category",
		Type:     coaType,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test COA category: %v", err)
	}

	subCategory := &models.CoaSubCategory{
		Code:       fmt.Sprintf("%d.1", 1000+n),
		Name:       "Test Sub-Category",
		CategoryID: category.ID,
		IsActive:   true,
	}
	if err := db.Create(subCategory).Error; err != nil {
		t.Fatalf("failed to create test COA sub-category: %v", err)
	}

	account := &models.CoaAccount{
		Code:               fmt.Sprintf("%d.1.1", 1000+n),
		Name:               "Test Account",
		SubCategoryID:      subCategory.ID,
		VisibleToTreasurer: true,
		IsActive:           true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test COA account: %v", err)
	}

	return category, subCategory, account
}

// CreateTestTransaction inserts a PAID cash transaction directly, bypassing
// the service layer. The receipt number is unique but not sequential.
func CreateTestTransaction(t *testing.T, db *gorm.DB, schoolID, createdByID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("invalid fixture amount %q: %v", amount, err)
	}

	txn := &models.Transaction{
		ReceiptNumber: fmt.Sprintf("KW-999912-%03d", nextID()),
		SchoolID:      schoolID,
		Type:          txType,
		Date:          time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Amount:        amt,
		Description:   "Fixture transaction",
		Category:      "Fixture",
		PaymentMethod: models.PaymentMethodCash,
		Status:        models.TransactionStatusPaid,
		CreatedByID:   createdByID,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}
