package persistence

import "time"

// Role identifies the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// LoanStatus tracks the lifecycle state of a loan. A loan is created as
// BORROWED and moves to RETURNED exactly once; there are no other transitions.
type LoanStatus string

const (
	LoanBorrowed LoanStatus = "BORROWED"
	LoanReturned LoanStatus = "RETURNED"
)

// User represents a library member or administrator account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Book represents a catalog entry. AvailableCopies stays within
// [0, TotalCopies]; the SQLite schema enforces the same bound with a CHECK
// constraint.
type Book struct {
	ID              string
	Title           string
	Author          string
	Genre           string
	ISBN            string
	TotalCopies     int
	AvailableCopies int
	Description     *string
	CreatedAt       time.Time
}

// Loan represents a single borrow of a book copy by a user.
type Loan struct {
	ID         string
	UserID     string
	BookID     string
	Status     LoanStatus
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	CreatedAt  time.Time
}

// LoanDetails joins a loan with borrower and book display fields for listings.
type LoanDetails struct {
	Loan
	UserName   string
	UserEmail  string
	BookTitle  string
	BookAuthor string
}

// ActivityLog is an append-only record of a significant action. UserID and
// BookID are weak references: the referenced rows may be deleted later and
// readers must tolerate the dangling id.
type ActivityLog struct {
	ID        string
	UserID    *string
	BookID    *string
	Action    string
	Message   string
	CreatedAt time.Time
}

// ActivityLogDetails joins a log entry with the current display name/title of
// the referenced user and book. Either pointer is nil when the referenced
// entity no longer exists.
type ActivityLogDetails struct {
	ActivityLog
	UserName  *string
	BookTitle *string
}

// Session represents an opaque authentication token issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
