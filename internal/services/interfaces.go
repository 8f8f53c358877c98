package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sikeu/internal/models"
	"sikeu/internal/pagination"
)

// CategoryPatch holds optional field updates for a COA category.
type CategoryPatch struct {
	Code     *string
	Name     *string
	IsActive *bool
}

// SubCategoryPatch holds optional field updates for a COA sub-category.
// The owning category is fixed at creation and cannot be patched.
type SubCategoryPatch struct {
	Code     *string
	Name     *string
	IsActive *bool
}

// AccountPatch holds optional field updates for a COA account.
type AccountPatch struct {
	Code               *string
	Name               *string
	VisibleToTreasurer *bool
	IsActive           *bool
}

// FlatAccount is one row of the flattened COA management view: an active
// account joined with its sub-category and category names.
type FlatAccount struct {
	AccountID          string         `json:"account_id"`
	AccountCode        string         `json:"account_code"`
	AccountName        string         `json:"account_name"`
	VisibleToTreasurer bool           `json:"visible_to_treasurer"`
	SubCategoryCode    string         `json:"sub_category_code"`
	SubCategoryName    string         `json:"sub_category_name"`
	CategoryCode       string         `json:"category_code"`
	CategoryName       string         `json:"category_name"`
	Type               models.CoaType `json:"type"`
}

// CoaServicer defines the contract for chart-of-accounts management.
type CoaServicer interface {
	CreateCategory(p models.Principal, code, name string, coaType models.CoaType) (*models.CoaCategory, error)
	UpdateCategory(p models.Principal, id string, patch CategoryPatch) (*models.CoaCategory, error)
	DeleteCategory(p models.Principal, id string) error
	CreateSubCategory(p models.Principal, categoryID, code, name string) (*models.CoaSubCategory, error)
	UpdateSubCategory(p models.Principal, id string, patch SubCategoryPatch) (*models.CoaSubCategory, error)
	DeleteSubCategory(p models.Principal, id string) error
	CreateAccount(p models.Principal, subCategoryID, code, name string, visibleToTreasurer bool) (*models.CoaAccount, error)
	UpdateAccount(p models.Principal, id string, patch AccountPatch) (*models.CoaAccount, error)
	DeleteAccount(p models.Principal, id string) error
	ListHierarchy(p models.Principal, typeFilter *models.CoaType) ([]models.CoaCategory, error)
	ListFlat(p models.Principal, typeFilter *models.CoaType) ([]FlatAccount, error)
}

// TransactionInput carries the payload for creating a transaction.
type TransactionInput struct {
	SchoolID      string // ignored for school-bound principals, who always post to their own school
	Type          models.TransactionType
	Date          time.Time
	Amount        decimal.Decimal
	CoaAccountID  *string
	Category      string
	Description   string
	Counterparty  string
	PaymentMethod models.PaymentMethod
	Status        models.TransactionStatus
}

// TransactionPatch holds optional field updates for a transaction.
// ReceiptNumber is present only so an attempted change can be rejected.
type TransactionPatch struct {
	Type          *models.TransactionType
	Date          *time.Time
	Amount        *decimal.Decimal
	CoaAccountID  *string
	Category      *string
	Description   *string
	Counterparty  *string
	PaymentMethod *models.PaymentMethod
	Status        *models.TransactionStatus
	ReceiptNumber *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Type        *models.TransactionType
	Search      string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Summary aggregates a school's ledger over a period. Income and expense
// totals cover PAID transactions only; TransactionCount covers every status
// in the period.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Surplus          decimal.Decimal `json:"surplus"`
	TransactionCount int64           `json:"transaction_count"`
}

// ReceiptView is the fully-resolved transaction view handed to the external
// receipt document renderer.
type ReceiptView struct {
	ReceiptNumber string                 `json:"receipt_number"`
	Date          time.Time              `json:"date"`
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	AccountName   string                 `json:"account_name"`
	Counterparty  string                 `json:"counterparty"`
	Description   string                 `json:"description"`
	PaymentMethod models.PaymentMethod   `json:"payment_method"`
	SchoolName    string                 `json:"school_name"`
	SchoolAddress string                 `json:"school_address"`
	SchoolPhone   string                 `json:"school_phone"`
}

// TransactionServicer defines the contract for the transaction ledger.
type TransactionServicer interface {
	Create(p models.Principal, input TransactionInput) (*models.Transaction, error)
	Get(p models.Principal, id string) (*models.Transaction, error)
	List(p models.Principal, schoolID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListForExport(p models.Principal, schoolID string, filter TransactionFilter) ([]models.Transaction, error)
	Update(p models.Principal, id string, patch TransactionPatch) (*models.Transaction, error)
	Delete(p models.Principal, id string) error
	Summary(p models.Principal, schoolID string, periodStart, periodEnd *time.Time) (*Summary, error)
	ReceiptView(p models.Principal, id string) (*ReceiptView, error)
}

// AuditFilter holds optional filter parameters for listing audit entries.
type AuditFilter struct {
	EntityType string
	EntityID   string
	UserID     string
}

// AuditServicer defines the contract for the append-only audit recorder.
// Record runs inside the caller's database transaction so the business
// mutation and its audit entry commit or roll back together.
type AuditServicer interface {
	Record(tx *gorm.DB, action models.AuditAction, entityType, entityID string, details map[string]any, userID string, schoolID *string) error
	List(p models.Principal, schoolID string, page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error)
}

// UserInput carries the payload for creating a user.
type UserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
	SchoolID *string
}

// UserPatch holds optional field updates for a user.
type UserPatch struct {
	Name     *string
	Role     *models.Role
	IsActive *bool
}

// UserServicer defines the contract for user management and the stand-in
// credential check used by the login endpoint.
type UserServicer interface {
	Create(p models.Principal, input UserInput) (*models.User, error)
	List(p models.Principal, schoolID string, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	Get(p models.Principal, id string) (*models.User, error)
	Update(p models.Principal, id string, patch UserPatch) (*models.User, error)
	Deactivate(p models.Principal, id string) error
	AttemptLogin(email, password string) (*models.User, error)
}

// SchoolPatch holds optional field updates for a school profile.
type SchoolPatch struct {
	Name          *string
	Address       *string
	Phone         *string
	Email         *string
	PrincipalName *string
}

// SchoolServicer defines the contract for tenant management.
type SchoolServicer interface {
	Create(p models.Principal, name, address, phone, email, principalName string) (*models.School, error)
	Get(p models.Principal, id string) (*models.School, error)
	List(p models.Principal, page pagination.PageRequest) (*pagination.PageResponse[models.School], error)
	Update(p models.Principal, id string, patch SchoolPatch) (*models.School, error)
}
