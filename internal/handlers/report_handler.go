package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "sikeu/internal/errors"
	"sikeu/internal/report"
	"sikeu/internal/services"
)

// ReportHandler serves management exports of committed ledger data.
type ReportHandler struct {
	transactionService services.TransactionServicer
	schoolService      services.SchoolServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(transactionService services.TransactionServicer, schoolService services.SchoolServicer) *ReportHandler {
	return &ReportHandler{transactionService: transactionService, schoolService: schoolService}
}

// ExportTransactions streams the filtered ledger as an XLSX workbook.
// @Summary     Export transactions
// @Description Download the school's filtered transaction list as a spreadsheet
// @Tags        reports
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       type query string false "INCOME or EXPENSE"
// @Param       search query string false "Free-text filter"
// @Param       period_start query string false "Start date"
// @Param       period_end query string false "End date"
// @Success     200 {file} binary "Workbook"
// @Router      /reports/transactions/export [get]
func (h *ReportHandler) ExportTransactions(c *gin.Context) {
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

	schoolID := c.Query("school_id")
	if p.SchoolID != nil {
		schoolID = *p.SchoolID
	}

	transactions, err := h.transactionService.ListForExport(p, schoolID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	schoolName := "All schools"
	if schoolID != "" {
		school, err := h.schoolService.Get(p, schoolID)
		if err == nil {
			schoolName = school.Name
		}
	}

	workbook, err := report.TransactionWorkbook(schoolName, transactions)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := workbook.Write(c.Writer); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}
}
