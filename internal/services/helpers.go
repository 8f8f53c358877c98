package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"sikeu/internal/authz"
	apperrors "sikeu/internal/errors"
)

// decisionErr converts a negative policy decision into the error the caller
// should surface. Masked denials report the resource as absent (notFound)
// so other tenants' ids are indistinguishable from nonexistent ones.
func decisionErr(d authz.Decision, notFound *apperrors.AppError) error {
	if d.Allowed {
		return nil
	}
	if d.MaskAsNotFound {
		return notFound
	}
	return apperrors.WithMessage(apperrors.ErrForbidden, d.Reason)
}

// isDuplicateErr reports whether err is a unique-constraint violation.
// The lookup-before-insert checks catch most collisions; this is the
// backstop for concurrent inserts.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
