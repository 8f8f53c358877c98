package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "sikeu/internal/errors"
	"sikeu/internal/models"
	"sikeu/internal/pagination"
	"sikeu/internal/services"
)

// TransactionHandler handles transaction ledger requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the payload for creating a transaction.
// Amount is a decimal string so currency never touches binary floating point.
type CreateTransactionRequest struct {
	SchoolID      string  `json:"school_id" binding:"omitempty,uuid"`
	Type          string  `json:"type" binding:"required,transaction_type"`
	Date          *string `json:"date"`
	Amount        string  `json:"amount" binding:"required"`
	CoaAccountID  *string `json:"coa_account_id" binding:"omitempty,uuid"`
	Category      string  `json:"category" binding:"max=200"`
	Description   string  `json:"description" binding:"max=500"`
	Counterparty  string  `json:"counterparty" binding:"max=200"`
	PaymentMethod string  `json:"payment_method" binding:"omitempty,payment_method"`
	Status        string  `json:"status" binding:"omitempty,transaction_status"`
}

// CreateTransaction records a new transaction in the ledger.
// @Summary     Create a transaction
// @Description Record an income or expense against a COA account; assigns a receipt number
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} map[string]interface{} "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a decimal number"))
		return
	}

	var date time.Time
	if req.Date != nil && *req.Date != "" {
		date, err = parseFlexibleTime(*req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	transaction, err := h.transactionService.Create(p, services.TransactionInput{
		SchoolID:      req.SchoolID,
		Type:          models.TransactionType(req.Type),
		Date:          date,
		Amount:        amount,
		CoaAccountID:  req.CoaAccountID,
		Category:      req.Category,
		Description:   req.Description,
		Counterparty:  req.Counterparty,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Status:        models.TransactionStatus(req.Status),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransaction returns one transaction.
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]interface{} "Transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.Get(p, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// listFilter parses the shared list/export/summary query parameters.
func listFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if raw := c.Query("type"); raw != "" {
		t := models.TransactionType(raw)
		if t != models.TransactionTypeIncome && t != models.TransactionTypeExpense {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be INCOME or EXPENSE")
		}
		filter.Type = &t
	}
	filter.Search = c.Query("search")
	if raw := c.Query("period_start"); raw != "" {
		t, err := parseFlexibleTime(raw)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		filter.PeriodStart = &t
	}
	if raw := c.Query("period_end"); raw != "" {
		t, err := parseFlexibleTime(raw)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		filter.PeriodEnd = &t
	}
	return filter, nil
}

// ListTransactions returns a filtered page of the school's ledger.
// @Summary     List transactions
// @Description Filter by type, free text, and period; ordered by date descending
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "INCOME or EXPENSE"
// @Param       search query string false "Match description, counterparty, or account name"
// @Param       period_start query string false "Start date"
// @Param       period_end query string false "End date"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} map[string]interface{} "Page of transactions"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.List(p, c.Query("school_id"), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateTransactionRequest represents a partial transaction update.
type UpdateTransactionRequest struct {
	Type          *string `json:"type" binding:"omitempty,transaction_type"`
	Date          *string `json:"date"`
	Amount        *string `json:"amount"`
	CoaAccountID  *string `json:"coa_account_id" binding:"omitempty,uuid"`
	Category      *string `json:"category" binding:"omitempty,max=200"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	Counterparty  *string `json:"counterparty" binding:"omitempty,max=200"`
	PaymentMethod *string `json:"payment_method" binding:"omitempty,payment_method"`
	Status        *string `json:"status" binding:"omitempty,transaction_status"`
	ReceiptNumber *string `json:"receipt_number"`
}

// UpdateTransaction applies a partial update to a transaction.
// @Summary     Update a transaction
// @Description Patch fields; a changed COA reference is re-validated and the receipt number is immutable
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} map[string]interface{} "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input or receipt change"
// @Router      /transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var patch services.TransactionPatch
	if req.Type != nil {
		t := models.TransactionType(*req.Type)
		patch.Type = &t
	}
	if req.Date != nil && *req.Date != "" {
		t, err := parseFlexibleTime(*req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		patch.Date = &t
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a decimal number"))
			return
		}
		patch.Amount = &amount
	}
	patch.CoaAccountID = req.CoaAccountID
	patch.Category = req.Category
	patch.Description = req.Description
	patch.Counterparty = req.Counterparty
	if req.PaymentMethod != nil {
		m := models.PaymentMethod(*req.PaymentMethod)
		patch.PaymentMethod = &m
	}
	if req.Status != nil {
		st := models.TransactionStatus(*req.Status)
		patch.Status = &st
	}
	patch.ReceiptNumber = req.ReceiptNumber

	transaction, err := h.transactionService.Update(p, c.Param("id"), patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction hard-deletes a transaction, leaving its audit trace.
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.Delete(p, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSummary aggregates the school's ledger over an optional period.
// @Summary     Ledger summary
// @Description Income and expense totals over PAID transactions plus a count of all rows in the period
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       period_start query string false "Start date"
// @Param       period_end query string false "End date"
// @Success     200 {object} services.Summary "Totals"
// @Router      /transactions/summary [get]
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.transactionService.Summary(p, c.Query("school_id"), filter.PeriodStart, filter.PeriodEnd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetReceiptView returns the resolved view consumed by the receipt renderer.
// @Summary     Receipt document view
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} services.ReceiptView "Resolved receipt data"
// @Router      /transactions/{id}/receipt [get]
func (h *TransactionHandler) GetReceiptView(c *gin.Context) {
	p, err := getPrincipal(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.transactionService.ReceiptView(p, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
