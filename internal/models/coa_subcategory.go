package models

// CoaSubCategory is the middle level of the chart-of-accounts hierarchy.
// It belongs to exactly one category, fixed at creation. Codes are unique
// across all sub-categories.
type CoaSubCategory struct {
	Base
	Code       string `gorm:"uniqueIndex;not null" json:"code"`
	Name       string `gorm:"not null" json:"name"`
	CategoryID string `gorm:"type:uuid;not null;index" json:"category_id"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`

	Category *CoaCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Accounts []CoaAccount `gorm:"foreignKey:SubCategoryID" json:"accounts,omitempty"`
}

// TableName overrides gorm's default "coa_sub_categories".
func (CoaSubCategory) TableName() string { return "coa_subcategories" }
