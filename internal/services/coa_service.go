package services

import (
	"errors"

	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
	"sikeu/internal/models"
)

// coaService handles chart-of-accounts business logic. The hierarchy is
// Category -> SubCategory -> Account; codes are globally unique per level
// and deletes never cascade, dependents must be removed bottom-up first.
type coaService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewCoaService creates a new CoaServicer.
func NewCoaService(db *gorm.DB, audit AuditServicer) CoaServicer {
	return &coaService{db: db, audit: audit}
}

// CreateCategory creates a top-level COA category.
func (s *coaService) CreateCategory(p models.Principal, code, name string, coaType models.CoaType) (*models.CoaCategory, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "code and name are required")
	}

	if err := s.checkCodeFree(&models.CoaCategory{}, code, ""); err != nil {
		return nil, err
	}

	category := &models.CoaCategory{
		Code:     code,
		Name:     name,
		Type:     coaType,
		IsActive: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(category).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionCreate, "coa_category", category.ID,
			map[string]any{"code": code, "name": name, "type": coaType}, p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory applies a partial update to a category.
func (s *coaService) UpdateCategory(p models.Principal, id string, patch CategoryPatch) (*models.CoaCategory, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrCategoryNotFound); err != nil {
		return nil, err
	}

	var category models.CoaCategory
	if err := s.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := make(map[string]interface{})
	if patch.Code != nil && *patch.Code != category.Code {
		if err := s.checkCodeFree(&models.CoaCategory{}, *patch.Code, id); err != nil {
			return nil, err
		}
		updates["code"] = *patch.Code
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return &category, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "coa_category", category.ID, toAuditDetails(updates), p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory hard-deletes a category. Fails while the category still
// owns sub-categories; there are no cascading deletes.
func (s *coaService) DeleteCategory(p models.Principal, id string) error {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrCategoryNotFound); err != nil {
		return err
	}

	var category models.CoaCategory
	if err := s.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var childCount int64
	if err := s.db.Model(&models.CoaSubCategory{}).Where("category_id = ?", id).Count(&childCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if childCount > 0 {
		return apperrors.WithMessage(apperrors.ErrHasDependents, "category still owns sub-categories")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionDelete, "coa_category", category.ID,
			map[string]any{"code": category.Code}, p.ID, p.SchoolID)
	})
}

// CreateSubCategory creates a sub-category under an existing category.
// The owning category is fixed for the lifetime of the sub-category.
func (s *coaService) CreateSubCategory(p models.Principal, categoryID, code, name string) (*models.CoaSubCategory, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "code and name are required")
	}

	var category models.CoaCategory
	if err := s.db.First(&category, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.checkCodeFree(&models.CoaSubCategory{}, code, ""); err != nil {
		return nil, err
	}

	subCategory := &models.CoaSubCategory{
		Code:       code,
		Name:       name,
		CategoryID: categoryID,
		IsActive:   true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(subCategory).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionCreate, "coa_subcategory", subCategory.ID,
			map[string]any{"code": code, "name": name, "category_id": categoryID}, p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return subCategory, nil
}

// UpdateSubCategory applies a partial update to a sub-category.
func (s *coaService) UpdateSubCategory(p models.Principal, id string, patch SubCategoryPatch) (*models.CoaSubCategory, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrSubCategoryNotFound); err != nil {
		return nil, err
	}

	var subCategory models.CoaSubCategory
	if err := s.db.First(&subCategory, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSubCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := make(map[string]interface{})
	if patch.Code != nil && *patch.Code != subCategory.Code {
		if err := s.checkCodeFree(&models.CoaSubCategory{}, *patch.Code, id); err != nil {
			return nil, err
		}
		updates["code"] = *patch.Code
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return &subCategory, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&subCategory).Updates(updates).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "coa_subcategory", subCategory.ID, toAuditDetails(updates), p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return &subCategory, nil
}

// DeleteSubCategory hard-deletes a sub-category unless it still owns accounts.
func (s *coaService) DeleteSubCategory(p models.Principal, id string) error {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrSubCategoryNotFound); err != nil {
		return err
	}

	var subCategory models.CoaSubCategory
	if err := s.db.First(&subCategory, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrSubCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accountCount int64
	if err := s.db.Model(&models.CoaAccount{}).Where("sub_category_id = ?", id).Count(&accountCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if accountCount > 0 {
		return apperrors.WithMessage(apperrors.ErrHasDependents, "sub-category still owns accounts")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&subCategory).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionDelete, "coa_subcategory", subCategory.ID,
			map[string]any{"code": subCategory.Code}, p.ID, p.SchoolID)
	})
}

// CreateAccount creates a leaf account under an existing sub-category.
func (s *coaService) CreateAccount(p models.Principal, subCategoryID, code, name string, visibleToTreasurer bool) (*models.CoaAccount, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "code and name are required")
	}

	var subCategory models.CoaSubCategory
	if err := s.db.First(&subCategory, "id = ?", subCategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSubCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.checkCodeFree(&models.CoaAccount{}, code, ""); err != nil {
		return nil, err
	}

	account := &models.CoaAccount{
		Code:               code,
		Name:               name,
		SubCategoryID:      subCategoryID,
		VisibleToTreasurer: visibleToTreasurer,
		IsActive:           true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionCreate, "coa_account", account.ID,
			map[string]any{"code": code, "name": name, "sub_category_id": subCategoryID, "visible_to_treasurer": visibleToTreasurer}, p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount applies a partial update to an account.
func (s *coaService) UpdateAccount(p models.Principal, id string, patch AccountPatch) (*models.CoaAccount, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrAccountNotFound); err != nil {
		return nil, err
	}

	var account models.CoaAccount
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := make(map[string]interface{})
	if patch.Code != nil && *patch.Code != account.Code {
		if err := s.checkCodeFree(&models.CoaAccount{}, *patch.Code, id); err != nil {
			return nil, err
		}
		updates["code"] = *patch.Code
	}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.VisibleToTreasurer != nil {
		updates["visible_to_treasurer"] = *patch.VisibleToTreasurer
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return &account, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&account).Updates(updates).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateCode
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "coa_account", account.ID, toAuditDetails(updates), p.ID, p.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccount hard-deletes an account unless any transaction references it.
func (s *coaService) DeleteAccount(p models.Principal, id string) error {
	if err := decisionErr(authz.Decide(p, authz.OpCoaManage, authz.Global), apperrors.ErrAccountNotFound); err != nil {
		return err
	}

	var account models.CoaAccount
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var refCount int64
	if err := s.db.Model(&models.Transaction{}).Where("coa_account_id = ?", id).Count(&refCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if refCount > 0 {
		return apperrors.WithMessage(apperrors.ErrHasDependents, "account is referenced by transactions")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionDelete, "coa_account", account.ID,
			map[string]any{"code": account.Code}, p.ID, p.SchoolID)
	})
}

// ListHierarchy returns the nested COA view used by the account-selection
// workflow: every category with its active sub-categories and their active
// accounts, ordered by code at every level.
func (s *coaService) ListHierarchy(p models.Principal, typeFilter *models.CoaType) ([]models.CoaCategory, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaView, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}

	q := s.db.Model(&models.CoaCategory{}).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("code ASC")
		}).
		Preload("SubCategories.Accounts", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("code ASC")
		}).
		Order("code ASC")
	if typeFilter != nil {
		q = q.Where("type = ?", *typeFilter)
	}

	var categories []models.CoaCategory
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// ListFlat returns one row per active account joined with its sub-category
// and category names, for management views.
func (s *coaService) ListFlat(p models.Principal, typeFilter *models.CoaType) ([]FlatAccount, error) {
	if err := decisionErr(authz.Decide(p, authz.OpCoaView, authz.Global), apperrors.ErrNotFound); err != nil {
		return nil, err
	}

	q := s.db.Model(&models.CoaAccount{}).
		Select(`coa_accounts.id AS account_id,
			coa_accounts.code AS account_code,
			coa_accounts.name AS account_name,
			coa_accounts.visible_to_treasurer,
			coa_subcategories.code AS sub_category_code,
			coa_subcategories.name AS sub_category_name,
			coa_categories.code AS category_code,
			coa_categories.name AS category_name,
			coa_categories.type AS type`).
		Joins("JOIN coa_subcategories ON coa_subcategories.id = coa_accounts.sub_category_id").
		Joins("JOIN coa_categories ON coa_categories.id = coa_subcategories.category_id").
		Where("coa_accounts.is_active = ?", true).
		Order("coa_categories.code ASC, coa_subcategories.code ASC, coa_accounts.code ASC")
	if typeFilter != nil {
		q = q.Where("coa_categories.type = ?", *typeFilter)
	}

	var rows []FlatAccount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// checkCodeFree verifies no other row of the given model carries the code.
// excludeID skips the row being updated.
func (s *coaService) checkCodeFree(model interface{}, code, excludeID string) error {
	q := s.db.Model(model).Where("code = ?", code)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCode
	}
	return nil
}

// toAuditDetails copies an updates map into the audit details shape.
func toAuditDetails(updates map[string]interface{}) map[string]any {
	details := make(map[string]any, len(updates))
	for k, v := range updates {
		details[k] = v
	}
	return details
}
