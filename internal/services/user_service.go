package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
	"sikeu/internal/models"
	"sikeu/internal/pagination"
)

// userService handles user management and the stand-in credential check.
type userService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, audit AuditServicer) UserServicer {
	return &userService{db: db, audit: audit}
}

// Create creates a user. Admins create users only within their own school
// and cannot mint SUPER_ADMIN or ADMIN accounts.
func (s *userService) Create(p models.Principal, input UserInput) (*models.User, error) {
	// School-bound admins are pinned to their own school regardless of payload.
	if p.SchoolID != nil {
		input.SchoolID = p.SchoolID
	}

	res := authz.Global
	if input.SchoolID != nil {
		res = authz.OwnSchool(*input.SchoolID)
	}
	if err := decisionErr(authz.Decide(p, authz.OpUserManage, res), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	if input.Email == "" || input.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if p.Role != models.RoleSuperAdmin && (input.Role == models.RoleSuperAdmin || input.Role == models.RoleAdmin) {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "only a super admin may assign this role")
	}
	if input.Role != models.RoleSuperAdmin && input.SchoolID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "school_id is required for school-bound roles")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:    input.Email,
		Password: string(hash),
		Name:     input.Name,
		Role:     input.Role,
		SchoolID: input.SchoolID,
		IsActive: true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.ErrDuplicateEmail
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionCreate, "user", user.ID,
			map[string]any{"email": input.Email, "role": input.Role}, p.ID, input.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves a paginated list of a school's users.
func (s *userService) List(p models.Principal, schoolID string, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if p.SchoolID != nil {
		schoolID = *p.SchoolID
	}
	if err := decisionErr(authz.Decide(p, authz.OpUserManage, authz.OwnSchool(schoolID)), apperrors.ErrSchoolNotFound); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.User{}).Where("school_id = ?", schoolID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := base.Scopes(pagination.Paginate(page)).Order("email ASC").Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Get retrieves a user visible to the principal; foreign-school users are
// reported as absent. Any principal may fetch its own record.
func (s *userService) Get(p models.Principal, id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if id == p.ID {
		return &user, nil
	}

	res := authz.Global
	if user.SchoolID != nil {
		res = authz.OwnSchool(*user.SchoolID)
	}
	if err := decisionErr(authz.Decide(p, authz.OpUserManage, res), apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies a partial update to a user.
func (s *userService) Update(p models.Principal, id string, patch UserPatch) (*models.User, error) {
	user, err := s.Get(p, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Role != nil {
		if p.Role != models.RoleSuperAdmin && (*patch.Role == models.RoleSuperAdmin || *patch.Role == models.RoleAdmin) {
			return nil, apperrors.WithMessage(apperrors.ErrForbidden, "only a super admin may assign this role")
		}
		updates["role"] = *patch.Role
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return user, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "user", user.ID, toAuditDetails(updates), p.ID, user.SchoolID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables a user's access without destroying the account, so
// audit entries keep a resolvable author.
func (s *userService) Deactivate(p models.Principal, id string) error {
	user, err := s.Get(p, id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.audit.Record(tx, models.AuditActionUpdate, "user", user.ID,
			map[string]any{"is_active": false}, p.ID, user.SchoolID)
	})
}

// AttemptLogin verifies credentials for the login endpoint. The ledger core
// itself never calls this; it trusts the principal the middleware resolves.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}
