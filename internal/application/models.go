package application

import (
	"time"

	"github.com/example/library-service/internal/persistence"
)

// Principal represents the authenticated actor invoking a service method. It
// carries everything downstream authorization needs so no per-request store
// lookup is required after session validation.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   persistence.Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == persistence.RoleAdmin
}

// IsAuthenticated reports whether the principal identifies a logged-in user.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != ""
}

// requireAdmin is the single role gate applied at the top of every
// administrator-only operation.
func requireAdmin(principal Principal) error {
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// User is the sanitized account view exposed by the services; the password
// digest never leaves the persistence layer.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      persistence.Role
	CreatedAt time.Time
}

func sanitizeUser(user persistence.User) User {
	return User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// BookInput captures caller provided book attributes for creation.
type BookInput struct {
	Title       string
	Author      string
	Genre       string
	ISBN        string
	TotalCopies int
	Description *string
}

// BookPatch captures a partial book update; nil fields retain the previous
// value.
type BookPatch struct {
	Title       *string
	Author      *string
	Genre       *string
	ISBN        *string
	TotalCopies *int
	Description *string
}

// CreateBookParams wraps the data required to create a book.
type CreateBookParams struct {
	Principal Principal
	Input     BookInput
}

// UpdateBookParams wraps the data required to update a book.
type UpdateBookParams struct {
	Principal Principal
	BookID    string
	Patch     BookPatch
}

// SearchBooksParams narrows a catalog search; zero values list everything.
type SearchBooksParams struct {
	Term  string
	Genre string
}

// BorrowBookParams wraps the data required to borrow a book. DueAt defaults
// to the configured loan period after the borrow time when nil.
type BorrowBookParams struct {
	Principal Principal
	BookID    string
	DueAt     *time.Time
}

// ReturnBookParams wraps the data required to return a loan.
type ReturnBookParams struct {
	Principal Principal
	LoanID    string
}

// RegisterParams captures self-service registration input.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

// CreateMemberParams captures administrator-driven account creation; unlike
// self-service registration the role may be set explicitly.
type CreateMemberParams struct {
	Principal Principal
	Name      string
	Email     string
	Password  string
	Role      persistence.Role
}

// LoginParams captures the credentials presented at login.
type LoginParams struct {
	Email    string
	Password string
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
