package models

// CoaType classifies a chart-of-accounts branch as revenue or expense.
type CoaType string

const (
	CoaTypeRevenue CoaType = "REVENUE"
	CoaTypeExpense CoaType = "EXPENSE"
)

// CoaCategory is the top level of the chart-of-accounts hierarchy.
// Codes are unique across all categories. A category cannot be deleted
// while it still owns sub-categories.
type CoaCategory struct {
	Base
	Code     string  `gorm:"uniqueIndex;not null" json:"code"`
	Name     string  `gorm:"not null" json:"name"`
	Type     CoaType `gorm:"not null" json:"type"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	SubCategories []CoaSubCategory `gorm:"foreignKey:CategoryID" json:"sub_categories,omitempty"`
}
