package models

// CoaAccount is the leaf level of the chart-of-accounts hierarchy and the
// only level transactions reference. VisibleToTreasurer governs whether a
// treasurer may post new transactions against the account; for accounts
// where it is false the treasurer's view is read-only.
type CoaAccount struct {
	Base
	Code               string `gorm:"uniqueIndex;not null" json:"code"`
	Name               string `gorm:"not null" json:"name"`
	SubCategoryID      string `gorm:"type:uuid;not null;index" json:"sub_category_id"`
	VisibleToTreasurer bool   `gorm:"default:true" json:"visible_to_treasurer"`
	IsActive           bool   `gorm:"default:true" json:"is_active"`

	SubCategory *CoaSubCategory `gorm:"foreignKey:SubCategoryID" json:"sub_category,omitempty"`
}
