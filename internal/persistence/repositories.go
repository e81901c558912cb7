package persistence

import (
	"context"
	"time"
)

// UserRepository exposes persistence operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// BookFilter narrows catalog searches. Empty fields match everything.
type BookFilter struct {
	Term  string
	Genre string
}

// BookRepository exposes persistence operations for catalog entries.
//
// DecrementAvailable and IncrementAvailable are single guarded UPDATE
// statements: the guard and the write happen in one round trip so concurrent
// borrows of the last copy resolve deterministically. Both return ErrNoMatch
// when the guard fails.
//
// UpdateBook is guarded the same way on expectedAvailable, the availability
// the caller derived the new counts from. ErrNoMatch means a borrow or return
// landed in between and the caller must re-read and retry.
type BookRepository interface {
	CreateBook(ctx context.Context, book Book) error
	UpdateBook(ctx context.Context, book Book, expectedAvailable int) error
	DeleteBook(ctx context.Context, id string) error
	GetBook(ctx context.Context, id string) (Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (Book, error)
	SearchBooks(ctx context.Context, filter BookFilter) ([]Book, error)
	DecrementAvailable(ctx context.Context, id string) error
	IncrementAvailable(ctx context.Context, id string) error
}

// LoanRepository exposes persistence operations for loans.
//
// BorrowBook inserts the loan row and decrements the book's available copy
// count in a single transaction; either both writes apply or neither does.
// MarkReturned flips the loan to RETURNED, guarded on the current status
// still being BORROWED, and returns ErrNoMatch when another caller won the
// transition.
type LoanRepository interface {
	BorrowBook(ctx context.Context, loan Loan) error
	MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) error
	GetLoan(ctx context.Context, id string) (Loan, error)
	FindActiveLoan(ctx context.Context, userID, bookID string) (Loan, error)
	ListLoansByUser(ctx context.Context, userID string) ([]LoanDetails, error)
	ListAllLoans(ctx context.Context) ([]LoanDetails, error)
}

// ActivityLogRepository stores the append-only audit trail.
type ActivityLogRepository interface {
	AppendLog(ctx context.Context, entry ActivityLog) error
	ListLogs(ctx context.Context, limit int) ([]ActivityLogDetails, error)
}

// SessionRepository stores issued authentication sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
