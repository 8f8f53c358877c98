package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
	"sikeu/internal/logger"
	"sikeu/internal/models"
	"sikeu/internal/pagination"
	"sikeu/internal/receipt"
)

// maxReceiptAttempts bounds the allocation retry loop. One retry suffices
// for a two-way race; three attempts absorb pathological contention too.
const maxReceiptAttempts = 3

// transactionService implements the transaction ledger: validation, receipt
// numbering, persistence, and the paired audit trail.
type transactionService struct {
	db        *gorm.DB
	sequencer receipt.Sequencer
	audit     AuditServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, audit AuditServicer) TransactionServicer {
	return &transactionService{db: db, audit: audit}
}

// Create validates the payload, allocates a receipt number, and persists the
// transaction together with its CREATE audit entry in one database
// transaction. A lost receipt-number race is retried internally and never
// surfaced to the caller.
func (s *transactionService) Create(p models.Principal, input TransactionInput) (*models.Transaction, error) {
	schoolID, err := s.resolveSchoolID(p, input.SchoolID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionCreate, authz.OwnSchool(schoolID)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	if err := validateTransactionInput(&input); err != nil {
		return nil, err
	}
	if err := s.validateCoaReference(p, input.CoaAccountID); err != nil {
		return nil, err
	}

	var created *models.Transaction
	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		created = &models.Transaction{
			SchoolID:      schoolID,
			Type:          input.Type,
			Date:          input.Date,
			Amount:        input.Amount,
			CoaAccountID:  input.CoaAccountID,
			Category:      input.Category,
			Description:   input.Description,
			Counterparty:  input.Counterparty,
			PaymentMethod: input.PaymentMethod,
			Status:        input.Status,
			CreatedByID:   p.ID,
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			number, seqErr := s.sequencer.Next(tx, schoolID, input.Date)
			if seqErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, seqErr)
			}
			created.ReceiptNumber = number

			if insErr := tx.Create(created).Error; insErr != nil {
				return insErr
			}
			return s.audit.Record(tx, models.AuditActionCreate, "transaction", created.ID,
				map[string]any{
					"receipt_number": number,
					"type":           input.Type,
					"amount":         input.Amount.String(),
					"status":         input.Status,
				}, p.ID, &schoolID)
		})
		if err == nil {
			return created, nil
		}
		if receipt.IsConflict(err) {
			logger.Get().Infow("receipt number conflict, retrying allocation",
				"school_id", schoolID, "attempt", attempt)
			created.ID = "" // let the next attempt mint a fresh id
			continue
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil, apperrors.Wrap(apperrors.ErrInternalServer, apperrors.ErrSequenceConflict)
}

// Get returns the transaction if it is visible to the principal. A
// transaction in another school is reported as absent, not forbidden.
func (s *transactionService) Get(p models.Principal, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Preload("CoaAccount").First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionView, authz.OwnSchool(txn.SchoolID)), apperrors.ErrTransactionNotFound); err != nil {
		return nil, err
	}
	return &txn, nil
}

// List retrieves a paginated, filtered slice of a school's ledger ordered by
// date descending.
func (s *transactionService) List(p models.Principal, schoolID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	schoolID, err := s.resolveSchoolID(p, schoolID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionList, authz.OwnSchool(schoolID)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.transactionQuery(schoolID, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("CoaAccount").
		Order("transactions.date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListForExport retrieves the full filtered ledger for spreadsheet export.
func (s *transactionService) ListForExport(p models.Principal, schoolID string, filter TransactionFilter) ([]models.Transaction, error) {
	schoolID, err := s.resolveSchoolID(p, schoolID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionExport, authz.OwnSchool(schoolID)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.transactionQuery(schoolID, filter).
		Preload("CoaAccount").
		Order("transactions.date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// Update applies a partial update. A changed COA reference is re-validated
// exactly as on create; the receipt number can never change, even when the
// date moves to another period.
func (s *transactionService) Update(p models.Principal, id string, patch TransactionPatch) (*models.Transaction, error) {
	txn, err := s.Get(p, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionUpdate, authz.OwnSchool(txn.SchoolID)), apperrors.ErrTransactionNotFound); err != nil {
		return nil, err
	}

	if patch.ReceiptNumber != nil && *patch.ReceiptNumber != txn.ReceiptNumber {
		return nil, apperrors.ErrReceiptImmutable
	}

	updates := make(map[string]interface{})
	if patch.Type != nil {
		if *patch.Type != models.TransactionTypeIncome && *patch.Type != models.TransactionTypeExpense {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction type")
		}
		updates["type"] = *patch.Type
	}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.Amount != nil {
		if !patch.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *patch.Amount
	}
	if patch.CoaAccountID != nil {
		if err := s.validateCoaReference(p, patch.CoaAccountID); err != nil {
			return nil, err
		}
		updates["coa_account_id"] = *patch.CoaAccountID
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Counterparty != nil {
		updates["counterparty"] = *patch.Counterparty
	}
	if patch.PaymentMethod != nil {
		updates["payment_method"] = *patch.PaymentMethod
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}

	if len(updates) == 0 {
		return txn, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(txn).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		details := toAuditDetails(updates)
		if patch.Amount != nil {
			details["amount"] = patch.Amount.String()
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "transaction", txn.ID, details, p.ID, &txn.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Delete hard-deletes a transaction and writes the DELETE audit entry in the
// same database transaction. The audit trail is the only remaining trace.
func (s *transactionService) Delete(p models.Principal, id string) error {
	txn, err := s.Get(p, id)
	if err != nil {
		return err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionDelete, authz.OwnSchool(txn.SchoolID)), apperrors.ErrTransactionNotFound); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Transaction{}, "id = ?", txn.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionDelete, "transaction", txn.ID,
			map[string]any{
				"receipt_number": txn.ReceiptNumber,
				"amount":         txn.Amount.String(),
				"type":           txn.Type,
			}, p.ID, &txn.SchoolID)
	})
}

// Summary aggregates a school's ledger over an optional period. Totals are
// summed in Go with exact decimal arithmetic over PAID rows only; the
// transaction count covers every status in the period.
func (s *transactionService) Summary(p models.Principal, schoolID string, periodStart, periodEnd *time.Time) (*Summary, error) {
	schoolID, err := s.resolveSchoolID(p, schoolID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(authz.Decide(p, authz.OpTransactionSummary, authz.OwnSchool(schoolID)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	periodScope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("school_id = ?", schoolID)
		if periodStart != nil {
			q = q.Where("date >= ?", *periodStart)
		}
		if periodEnd != nil {
			q = q.Where("date <= ?", *periodEnd)
		}
		return q
	}

	sumPaid := func(txType models.TransactionType) (decimal.Decimal, error) {
		var amounts []decimal.Decimal
		err := periodScope(s.db.Model(&models.Transaction{})).
			Where("status = ? AND type = ?", models.TransactionStatusPaid, txType).
			Pluck("amount", &amounts).Error
		if err != nil {
			return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		total := decimal.Zero
		for _, a := range amounts {
			total = total.Add(a)
		}
		return total, nil
	}

	totalIncome, err := sumPaid(models.TransactionTypeIncome)
	if err != nil {
		return nil, err
	}
	totalExpense, err := sumPaid(models.TransactionTypeExpense)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := periodScope(s.db.Model(&models.Transaction{})).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &Summary{
		TotalIncome:      totalIncome,
		TotalExpense:     totalExpense,
		Surplus:          totalIncome.Sub(totalExpense),
		TransactionCount: count,
	}, nil
}

// ReceiptView resolves the stable transaction view the external receipt
// document renderer consumes.
func (s *transactionService) ReceiptView(p models.Principal, id string) (*ReceiptView, error) {
	txn, err := s.Get(p, id)
	if err != nil {
		return nil, err
	}

	var school models.School
	if err := s.db.First(&school, "id = ?", txn.SchoolID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	accountName := txn.Category
	if txn.CoaAccount != nil {
		accountName = txn.CoaAccount.Name
	}

	return &ReceiptView{
		ReceiptNumber: txn.ReceiptNumber,
		Date:          txn.Date,
		Type:          txn.Type,
		Amount:        txn.Amount,
		AccountName:   accountName,
		Counterparty:  txn.Counterparty,
		Description:   txn.Description,
		PaymentMethod: txn.PaymentMethod,
		SchoolName:    school.Name,
		SchoolAddress: school.Address,
		SchoolPhone:   school.Phone,
	}, nil
}

// transactionQuery builds the base filtered query for list and export.
func (s *transactionService) transactionQuery(schoolID string, filter TransactionFilter) *gorm.DB {
	q := s.db.Model(&models.Transaction{}).Where("transactions.school_id = ?", schoolID)
	if filter.Type != nil {
		q = q.Where("transactions.type = ?", *filter.Type)
	}
	if filter.PeriodStart != nil {
		q = q.Where("transactions.date >= ?", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		q = q.Where("transactions.date <= ?", *filter.PeriodEnd)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Joins("LEFT JOIN coa_accounts ON coa_accounts.id = transactions.coa_account_id").
			Where(`LOWER(transactions.description) LIKE ?
				OR LOWER(transactions.counterparty) LIKE ?
				OR LOWER(transactions.category) LIKE ?
				OR LOWER(coa_accounts.name) LIKE ?`, like, like, like, like)
	}
	return q
}

// resolveSchoolID picks the tenant a request addresses: school-bound
// principals always act on their own school, SUPER_ADMIN must name one.
func (s *transactionService) resolveSchoolID(p models.Principal, requested string) (string, error) {
	if p.SchoolID != nil {
		return *p.SchoolID, nil
	}
	if requested == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "school_id is required")
	}
	return requested, nil
}

// validateTransactionInput normalizes defaults and checks payload shape.
func validateTransactionInput(input *TransactionInput) error {
	if !input.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.Type != models.TransactionTypeIncome && input.Type != models.TransactionTypeExpense {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction type")
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = models.PaymentMethodCash
	}
	if input.Status == "" {
		input.Status = models.TransactionStatusPaid
	}
	if input.CoaAccountID == nil && input.Category == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "a COA account or legacy category is required")
	}
	return nil
}

// validateCoaReference checks that the referenced account exists, is active,
// and is selectable by the principal's role. Treasurers may only post
// against accounts flagged visible to them.
func (s *transactionService) validateCoaReference(p models.Principal, coaAccountID *string) error {
	if coaAccountID == nil {
		return nil
	}

	var account models.CoaAccount
	if err := s.db.First(&account, "id = ?", *coaAccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidReference
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !account.IsActive {
		return apperrors.ErrInvalidReference
	}
	if p.Role == models.RoleTreasurer && !account.VisibleToTreasurer {
		return apperrors.WithMessage(apperrors.ErrForbidden, "account is not available to treasurers")
	}
	return nil
}
