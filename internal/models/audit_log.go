package models

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditLog records every mutating ledger operation. Entries are append-only:
// nothing in the system updates or deletes them.
type AuditLog struct {
	Base
	Action     AuditAction `gorm:"not null" json:"action"`
	EntityType string      `gorm:"not null;index" json:"entity_type"`
	EntityID   string      `gorm:"not null;index" json:"entity_id"`
	Details    string      `json:"details,omitempty"`
	UserID     string      `gorm:"type:uuid;not null;index" json:"user_id"`
	SchoolID   *string     `gorm:"type:uuid;index" json:"school_id,omitempty"`
}
