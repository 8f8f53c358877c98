package services

import (
	"errors"

	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
	"sikeu/internal/models"
	"sikeu/internal/pagination"
)

// schoolService handles tenant management. Schools are created by the super
// admin and never deleted in normal operation.
type schoolService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewSchoolService creates a new SchoolServicer.
func NewSchoolService(db *gorm.DB, audit AuditServicer) SchoolServicer {
	return &schoolService{db: db, audit: audit}
}

// Create registers a new school.
func (s *schoolService) Create(p models.Principal, name, address, phone, email, principalName string) (*models.School, error) {
	if err := decisionErr(authz.Decide(p, authz.OpSchoolManage, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "school name is required")
	}

	school := &models.School{
		Name:          name,
		Address:       address,
		Phone:         phone,
		Email:         email,
		PrincipalName: principalName,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(school).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionCreate, "school", school.ID,
			map[string]any{"name": name}, p.ID, &school.ID)
	})
	if err != nil {
		return nil, err
	}
	return school, nil
}

// Get retrieves a school visible to the principal.
func (s *schoolService) Get(p models.Principal, id string) (*models.School, error) {
	if err := decisionErr(authz.Decide(p, authz.OpSchoolUpdate, authz.OwnSchool(id)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	var school models.School
	if err := s.db.First(&school, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSchoolNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &school, nil
}

// List retrieves all schools; super admin only.
func (s *schoolService) List(p models.Principal, page pagination.PageRequest) (*pagination.PageResponse[models.School], error) {
	if err := decisionErr(authz.Decide(p, authz.OpSchoolManage, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}

	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.School{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var schools []models.School
	if err := s.db.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&schools).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(schools, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Update applies a partial update to a school's contact profile. The profile
// feeds the external receipt document renderer.
func (s *schoolService) Update(p models.Principal, id string, patch SchoolPatch) (*models.School, error) {
	school, err := s.Get(p, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.PrincipalName != nil {
		updates["principal_name"] = *patch.PrincipalName
	}

	if len(updates) == 0 {
		return school, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(school).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "school", school.ID, toAuditDetails(updates), p.ID, &school.ID)
	})
	if err != nil {
		return nil, err
	}
	return school, nil
}
