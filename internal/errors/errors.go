// Package errors provides custom error types for the SiKeu API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// School (tenant) errors.
var (
	ErrSchoolNotFound = &AppError{Code: "SCHOOL_NOT_FOUND", Message: "School not found", StatusCode: http.StatusNotFound}
)

// Chart-of-accounts errors.
var (
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "COA category not found", StatusCode: http.StatusNotFound}
	ErrSubCategoryNotFound = &AppError{Code: "SUBCATEGORY_NOT_FOUND", Message: "COA sub-category not found", StatusCode: http.StatusNotFound}
	ErrAccountNotFound     = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "COA account not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCode       = &AppError{Code: "DUPLICATE_CODE", Message: "A COA entry with this code already exists", StatusCode: http.StatusConflict}
	ErrHasDependents       = &AppError{Code: "HAS_DEPENDENTS", Message: "Entry still has dependent records and cannot be deleted", StatusCode: http.StatusConflict}
	ErrInvalidReference    = &AppError{Code: "INVALID_REFERENCE", Message: "Referenced COA account is missing or inactive", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrReceiptImmutable    = &AppError{Code: "RECEIPT_IMMUTABLE", Message: "Receipt number cannot be changed", StatusCode: http.StatusBadRequest}
	// ErrSequenceConflict marks a receipt-number allocation race. The ledger
	// retries the allocation internally; this must never reach a client.
	ErrSequenceConflict = &AppError{Code: "SEQUENCE_CONFLICT", Message: "Receipt number allocation conflict", StatusCode: http.StatusConflict}
)
