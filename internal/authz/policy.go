// Package authz centralizes the role/tenant permission matrix as a single
// pure decision function. Services consult Decide before every mutation and
// every cross-tenant read instead of scattering inline role checks.
package authz

import (
	"sikeu/internal/models"
)

// Operation identifies a guarded action on the ledger or its surroundings.
type Operation string

const (
	OpTransactionCreate  Operation = "transaction.create"
	OpTransactionView    Operation = "transaction.view"
	OpTransactionList    Operation = "transaction.list"
	OpTransactionUpdate  Operation = "transaction.update"
	OpTransactionDelete  Operation = "transaction.delete"
	OpTransactionSummary Operation = "transaction.summary"
	OpTransactionExport  Operation = "transaction.export"

	OpCoaManage Operation = "coa.manage"
	OpCoaView   Operation = "coa.view"

	OpUserManage   Operation = "user.manage"
	OpSchoolManage Operation = "school.manage"
	OpSchoolUpdate Operation = "school.update"
	OpAuditView    Operation = "audit.view"
)

// Resource carries the tenant binding of the addressed resource.
// SchoolID is nil for global resources (COA definitions, school creation).
type Resource struct {
	SchoolID *string
}

// OwnSchool builds a Resource bound to the given school.
func OwnSchool(schoolID string) Resource {
	return Resource{SchoolID: &schoolID}
}

// Global is a Resource with no tenant binding.
var Global = Resource{}

// Decision is the outcome of a policy check. When MaskAsNotFound is set the
// caller must report the resource as absent rather than forbidden, so that
// foreign tenant ids cannot be distinguished from nonexistent ones.
type Decision struct {
	Allowed        bool
	Reason         string
	MaskAsNotFound bool
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

func denyMasked(reason string) Decision {
	return Decision{Reason: reason, MaskAsNotFound: true}
}

// rolePermissions is the in-tenant permission matrix for the non-super roles.
var rolePermissions = map[models.Role]map[Operation]bool{
	models.RoleAdmin: {
		OpTransactionCreate:  true,
		OpTransactionView:    true,
		OpTransactionList:    true,
		OpTransactionUpdate:  true,
		OpTransactionDelete:  true,
		OpTransactionSummary: true,
		OpTransactionExport:  true,
		OpCoaView:            true,
		OpUserManage:         true,
		OpSchoolUpdate:       true,
		OpAuditView:          true,
	},
	models.RoleTreasurer: {
		OpTransactionCreate:  true,
		OpTransactionView:    true,
		OpTransactionList:    true,
		OpTransactionUpdate:  true,
		OpTransactionSummary: true,
		OpTransactionExport:  true,
		OpCoaView:            true,
	},
	models.RoleUser: {
		OpTransactionView:    true,
		OpTransactionList:    true,
		OpTransactionSummary: true,
	},
}

// Decide evaluates whether the principal may perform op on resource.
// It is a pure function of its inputs.
func Decide(p models.Principal, op Operation, res Resource) Decision {
	if p.ID == "" {
		return deny("no authenticated principal")
	}

	// SUPER_ADMIN is unrestricted across all tenants.
	if p.Role == models.RoleSuperAdmin {
		return Allow
	}

	// COA definitions and school creation are global resources managed only
	// by SUPER_ADMIN.
	if op == OpCoaManage || op == OpSchoolManage {
		return deny("requires super admin")
	}

	// Every other operation is tenant-scoped: the principal must be bound to
	// a school and the resource must belong to that school. Cross-tenant
	// attempts are masked so the resource looks nonexistent.
	if p.SchoolID == nil {
		return deny("principal has no school binding")
	}
	if res.SchoolID != nil && *res.SchoolID != *p.SchoolID {
		return denyMasked("resource belongs to another school")
	}

	if rolePermissions[p.Role][op] {
		return Allow
	}
	return deny("role " + string(p.Role) + " may not " + string(op))
}
