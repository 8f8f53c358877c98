package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
	"sikeu/internal/logger"
	"sikeu/internal/models"
	"sikeu/internal/pagination"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record appends an audit entry using the caller's transaction handle. The
// entry and the mutation it describes commit or roll back as one unit; a
// mutation must never land without its audit trace.
func (s *auditService) Record(tx *gorm.DB, action models.AuditAction, entityType, entityID string, details map[string]any, userID string, schoolID *string) error {
	var detailsJSON string
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit details", "error", err, "action", action)
			detailsJSON = "{}"
		} else {
			detailsJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		UserID:     userID,
		SchoolID:   schoolID,
	}

	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// List retrieves a paginated view of the audit trail for a school.
func (s *auditService) List(p models.Principal, schoolID string, page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error) {
	if err := decisionErr(authz.Decide(p, authz.OpAuditView, authz.OwnSchool(schoolID)), apperrors.ErrNotFound); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.AuditLog{}).Where("school_id = ?", schoolID)
	if filter.EntityType != "" {
		base = base.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		base = base.Where("entity_id = ?", filter.EntityID)
	}
	if filter.UserID != "" {
		base = base.Where("user_id = ?", filter.UserID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.AuditLog
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}
