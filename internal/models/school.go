package models

// School is the tenant. Every COA entry, user, and transaction belongs to
// exactly one school; schools are never destroyed in normal operation.
type School struct {
	Base
	Name          string `gorm:"not null" json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	PrincipalName string `json:"principal_name"`

	// Relationships
	Users        []User        `gorm:"foreignKey:SchoolID" json:"users,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:SchoolID" json:"transactions,omitempty"`
}
