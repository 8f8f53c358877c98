package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sikeu/internal/errors"
	"sikeu/internal/pagination"
	"sikeu/internal/services"
)

// AuditHandler exposes the read side of the audit trail.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLog returns a page of the school's audit trail.
// @Summary     List audit entries
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity_type query string false "Filter by entity type"
// @Param       entity_id query string false "Filter by entity id"
// @Param       user_id query string false "Filter by acting user"
// @Success     200 {object} map[string]interface{} "Page of audit entries"
// @Router      /audit [get]
func (h *AuditHandler) ListAuditLog(c *gin.Context) {
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

	schoolID := c.Query("school_id")
	if p.SchoolID != nil {
		schoolID = *p.SchoolID
	}

	result, err := h.auditService.List(p, schoolID, page, services.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		UserID:     c.Query("user_id"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
