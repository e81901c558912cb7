package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert or update would violate a
	// unique key (email, ISBN, or an active loan for the same user/book pair).
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK constraint rejects a
	// write, such as a copy count leaving the [0, total] bound.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a row that
	// does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrNoMatch is returned by guarded conditional updates when the guard
	// predicate did not hold for the current row. Callers treat it as the
	// losing side of a race, not as a transient condition to retry.
	ErrNoMatch = errors.New("persistence: conditional update matched no rows")
)
