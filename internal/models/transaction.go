package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// PaymentMethod is how the money moved.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodQRIS         PaymentMethod = "QRIS"
)

// TransactionStatus is the settlement state of a transaction. Only PAID
// rows count toward income/expense totals.
type TransactionStatus string

const (
	TransactionStatusPaid    TransactionStatus = "PAID"
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusVoid    TransactionStatus = "VOID"
)

// Transaction is one ledger entry for a school. The receipt number is
// assigned at creation, unique within the school, and immutable afterwards.
// Amount is an exact decimal; currency must never pass through binary
// floating point.
type Transaction struct {
	Base
	ReceiptNumber string            `gorm:"uniqueIndex:idx_transactions_school_receipt_number,priority:2;not null" json:"receipt_number"`
	SchoolID      string            `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_school_receipt_number,priority:1;index:idx_transactions_school_date,priority:1" json:"school_id"`
	Type          TransactionType   `gorm:"not null" json:"type"`
	Date          time.Time         `gorm:"not null;index:idx_transactions_school_date,priority:2" json:"date"`
	Amount        decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	CoaAccountID  *string           `gorm:"type:uuid;index" json:"coa_account_id,omitempty"`
	Category      string            `json:"category,omitempty"` // legacy free-text category, used only when CoaAccountID is nil
	Description   string            `json:"description"`
	Counterparty  string            `json:"counterparty"`
	PaymentMethod PaymentMethod     `gorm:"not null;default:'CASH'" json:"payment_method"`
	Status        TransactionStatus `gorm:"not null;default:'PAID'" json:"status"`
	CreatedByID   string            `gorm:"type:uuid;not null" json:"created_by_id"`

	School     *School     `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
	CoaAccount *CoaAccount `gorm:"foreignKey:CoaAccountID" json:"coa_account,omitempty"`
	CreatedBy  *User       `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}
