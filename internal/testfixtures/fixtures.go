package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/library-service/internal/persistence"
)

var (
	userCounter uint64
	bookCounter uint64
	loanCounter uint64
)

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	user := persistence.User{
		ID:           id,
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         persistence.RoleUser,
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserRole overrides the generated role.
func WithUserRole(role persistence.Role) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(u *persistence.User) { u.PasswordHash = hash }
}

// BookOption configures a generated book fixture.
type BookOption func(*persistence.Book)

// NewBookFixture returns a deterministic book record with optional overrides.
// Available copies start equal to total copies.
func NewBookFixture(opts ...BookOption) persistence.Book {
	idx := atomic.AddUint64(&bookCounter, 1)
	book := persistence.Book{
		ID:              fmt.Sprintf("book-%03d", idx),
		Title:           fmt.Sprintf("Book %03d", idx),
		Author:          fmt.Sprintf("Author %03d", idx),
		Genre:           "Fiction",
		ISBN:            fmt.Sprintf("978000000%04d", idx),
		TotalCopies:     3,
		AvailableCopies: 3,
		CreatedAt:       referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&book)
	}
	return book
}

// WithBookID overrides the generated book ID.
func WithBookID(id string) BookOption {
	return func(b *persistence.Book) { b.ID = id }
}

// WithBookISBN overrides the generated ISBN.
func WithBookISBN(isbn string) BookOption {
	return func(b *persistence.Book) { b.ISBN = isbn }
}

// WithBookGenre overrides the generated genre.
func WithBookGenre(genre string) BookOption {
	return func(b *persistence.Book) { b.Genre = genre }
}

// WithBookCopies sets the total and available copy counts.
func WithBookCopies(total, available int) BookOption {
	return func(b *persistence.Book) {
		b.TotalCopies = total
		b.AvailableCopies = available
	}
}

// WithBookTitle overrides the generated title.
func WithBookTitle(title string) BookOption {
	return func(b *persistence.Book) { b.Title = title }
}

// WithBookAuthor overrides the generated author.
func WithBookAuthor(author string) BookOption {
	return func(b *persistence.Book) { b.Author = author }
}

// LoanOption configures a generated loan fixture.
type LoanOption func(*persistence.Loan)

// NewLoanFixture returns a deterministic active loan linking the supplied user
// and book.
func NewLoanFixture(userID, bookID string, opts ...LoanOption) persistence.Loan {
	idx := atomic.AddUint64(&loanCounter, 1)
	borrowed := referenceTime.Add(time.Duration(idx) * time.Minute)
	loan := persistence.Loan{
		ID:         fmt.Sprintf("loan-%03d", idx),
		UserID:     userID,
		BookID:     bookID,
		Status:     persistence.LoanBorrowed,
		BorrowedAt: borrowed,
		DueAt:      borrowed.Add(14 * 24 * time.Hour),
		CreatedAt:  borrowed,
	}
	for _, opt := range opts {
		opt(&loan)
	}
	return loan
}

// WithLoanID overrides the generated loan ID.
func WithLoanID(id string) LoanOption {
	return func(l *persistence.Loan) { l.ID = id }
}

// WithLoanReturned marks the loan as returned at the supplied time.
func WithLoanReturned(at time.Time) LoanOption {
	return func(l *persistence.Loan) {
		l.Status = persistence.LoanReturned
		l.ReturnedAt = &at
	}
}

// WithLoanDueAt overrides the generated due date.
func WithLoanDueAt(at time.Time) LoanOption {
	return func(l *persistence.Loan) { l.DueAt = at }
}
