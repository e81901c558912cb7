package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/library-service/internal/persistence"
)

// LoanRepository implements persistence.LoanRepository using SQLite.
type LoanRepository struct {
	pool *ConnectionPool
}

// NewLoanRepository creates a SQLite-backed loan repository.
func NewLoanRepository(pool *ConnectionPool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// BorrowBook inserts the loan row and takes one available copy of the book in
// a single transaction. When the guarded decrement matches no row (the last
// copy was taken since the caller's availability check) the transaction rolls
// back and ErrNoMatch is returned, so no BORROWED loan without a matching
// decrement can ever be observed. A concurrent duplicate borrow by the same
// user trips the partial unique index and surfaces as ErrDuplicate.
func (r *LoanRepository) BorrowBook(ctx context.Context, loan persistence.Loan) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO loans (id, user_id, book_id, status, borrowed_at, due_at, returned_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			loan.ID,
			loan.UserID,
			loan.BookID,
			string(loan.Status),
			formatTimestamp(loan.BorrowedAt),
			formatTimestamp(loan.DueAt),
			formatNullableTimestamp(loan.ReturnedAt),
			formatTimestamp(loan.CreatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		return decrementAvailable(ctx, tx, loan.BookID)
	})
}

// MarkReturned transitions a loan to RETURNED, guarded on the status still
// being BORROWED. ErrNoMatch means the loan was absent or already closed.
func (r *LoanRepository) MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE loans SET status = ?, returned_at = ?
		WHERE id = ? AND status = ?
	`,
		string(persistence.LoanReturned),
		formatTimestamp(returnedAt),
		loanID,
		string(persistence.LoanBorrowed),
	)
	if err != nil {
		return mapError(err)
	}
	return noMatchWhenZero(result)
}

// GetLoan retrieves a loan by ID.
func (r *LoanRepository) GetLoan(ctx context.Context, id string) (persistence.Loan, error) {
	if id == "" {
		return persistence.Loan{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, status, borrowed_at, due_at, returned_at, created_at
		FROM loans
		WHERE id = ?
	`, id)

	return scanLoan(row)
}

// FindActiveLoan returns the BORROWED loan for the (user, book) pair, or
// ErrNotFound when the user holds no active loan of that book.
func (r *LoanRepository) FindActiveLoan(ctx context.Context, userID, bookID string) (persistence.Loan, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, status, borrowed_at, due_at, returned_at, created_at
		FROM loans
		WHERE user_id = ? AND book_id = ? AND status = ?
		LIMIT 1
	`, userID, bookID, string(persistence.LoanBorrowed))

	return scanLoan(row)
}

const loanDetailsQuery = `
	SELECT l.id, l.user_id, l.book_id, l.status, l.borrowed_at, l.due_at, l.returned_at, l.created_at,
	       u.name, u.email, b.title, b.author
	FROM loans l
	JOIN users u ON u.id = l.user_id
	JOIN books b ON b.id = l.book_id
`

// ListLoansByUser returns the user's loans joined with display fields, newest
// borrowed first.
func (r *LoanRepository) ListLoansByUser(ctx context.Context, userID string) ([]persistence.LoanDetails, error) {
	rows, err := r.pool.db.QueryContext(ctx, loanDetailsQuery+`
		WHERE l.user_id = ?
		ORDER BY l.borrowed_at DESC, l.id ASC
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectLoanDetails(rows)
}

// ListAllLoans returns every loan joined with display fields, newest borrowed
// first.
func (r *LoanRepository) ListAllLoans(ctx context.Context) ([]persistence.LoanDetails, error) {
	rows, err := r.pool.db.QueryContext(ctx, loanDetailsQuery+`
		ORDER BY l.borrowed_at DESC, l.id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectLoanDetails(rows)
}

func collectLoanDetails(rows *sql.Rows) ([]persistence.LoanDetails, error) {
	var loans []persistence.LoanDetails
	for rows.Next() {
		var detail persistence.LoanDetails
		var status, borrowedAt, dueAt, createdAt string
		var returnedAt sql.NullString

		err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.BookID,
			&status,
			&borrowedAt,
			&dueAt,
			&returnedAt,
			&createdAt,
			&detail.UserName,
			&detail.UserEmail,
			&detail.BookTitle,
			&detail.BookAuthor,
		)
		if err != nil {
			return nil, mapError(err)
		}

		detail.Status = persistence.LoanStatus(status)
		if detail.BorrowedAt, err = parseTimestamp(borrowedAt); err != nil {
			return nil, fmt.Errorf("failed to parse borrowed_at: %w", err)
		}
		if detail.DueAt, err = parseTimestamp(dueAt); err != nil {
			return nil, fmt.Errorf("failed to parse due_at: %w", err)
		}
		if detail.ReturnedAt, err = parseNullableTimestamp(returnedAt); err != nil {
			return nil, fmt.Errorf("failed to parse returned_at: %w", err)
		}
		if detail.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		loans = append(loans, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return loans, nil
}

func scanLoan(row rowScanner) (persistence.Loan, error) {
	var loan persistence.Loan
	var status, borrowedAt, dueAt, createdAt string
	var returnedAt sql.NullString

	err := row.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.BookID,
		&status,
		&borrowedAt,
		&dueAt,
		&returnedAt,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Loan{}, persistence.ErrNotFound
		}
		return persistence.Loan{}, mapError(err)
	}

	loan.Status = persistence.LoanStatus(status)
	if loan.BorrowedAt, err = parseTimestamp(borrowedAt); err != nil {
		return persistence.Loan{}, fmt.Errorf("failed to parse borrowed_at: %w", err)
	}
	if loan.DueAt, err = parseTimestamp(dueAt); err != nil {
		return persistence.Loan{}, fmt.Errorf("failed to parse due_at: %w", err)
	}
	if loan.ReturnedAt, err = parseNullableTimestamp(returnedAt); err != nil {
		return persistence.Loan{}, fmt.Errorf("failed to parse returned_at: %w", err)
	}
	if loan.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Loan{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return loan, nil
}
