package application

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when input violates a business rule:
	// negative copy counts, a due date in the past, shrinking a book's total
	// below the copies currently on loan, or closing an already closed loan.
	ErrInvalidArgument = errors.New("application: invalid argument")
	// ErrUnauthorized is returned when credentials or the session token are
	// missing or invalid. Login failures are deliberately indistinguishable
	// between "no such user" and "wrong password".
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the authenticated actor lacks the role or
	// ownership an operation requires.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned on uniqueness or state-exclusivity violations:
	// duplicate email or ISBN, or a second active loan for the same book.
	ErrConflict = errors.New("application: conflict")
	// ErrSessionExpired is returned when a session token has passed its
	// expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly
	// revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// invalidArgumentf wraps ErrInvalidArgument with a caller-facing reason.
func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// conflictf wraps ErrConflict with a caller-facing reason.
func conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
