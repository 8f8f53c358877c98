package models

// Role determines what ledger and administrative operations a user may perform.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleTreasurer  Role = "TREASURER"
	RoleUser       Role = "USER"
)

// User represents the user model in the database
type User struct {
	Base
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Password string  `gorm:"not null" json:"-"`
	Name     string  `json:"name"`
	Role     Role    `gorm:"not null;default:'USER'" json:"role"`
	SchoolID *string `gorm:"type:uuid;index" json:"school_id,omitempty"` // nil only for SUPER_ADMIN
	IsActive bool    `gorm:"default:true" json:"is_active"`

	School *School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
}

// Principal is the authenticated identity attached to a request by the
// auth middleware: who is acting, with what role, for which school. The
// core trusts this binding; credential verification happens upstream.
type Principal struct {
	ID       string
	Role     Role
	SchoolID *string
}

// Principal derives the request principal for a user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, SchoolID: u.SchoolID}
}

// SameSchool reports whether the principal is bound to the given school.
func (p Principal) SameSchool(schoolID string) bool {
	return p.SchoolID != nil && *p.SchoolID == schoolID
}
