package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/library-service/internal/persistence"
)

// DefaultLoanPeriod is applied when a borrow request carries no due date.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// catalogAdjuster is the slice of the catalog service the loan workflow needs
// for copy-count adjustment on return.
type catalogAdjuster interface {
	IncrementAvailable(ctx context.Context, bookID string) error
}

// LoanService orchestrates the borrow/return state machine. A loan moves
// BORROWED -> RETURNED exactly once, a user holds at most one active loan per
// book, and every borrow pairs a loan insert with a copy-count decrement
// applied atomically by the store.
type LoanService struct {
	loans       persistence.LoanRepository
	books       persistence.BookRepository
	users       persistence.UserRepository
	logs        persistence.ActivityLogRepository
	catalog     catalogAdjuster
	idGenerator func() string
	now         func() time.Time
	loanPeriod  time.Duration
	logger      *slog.Logger
}

// NewLoanService wires dependencies for the loan workflow.
func NewLoanService(
	loans persistence.LoanRepository,
	books persistence.BookRepository,
	users persistence.UserRepository,
	logs persistence.ActivityLogRepository,
	catalog catalogAdjuster,
	idGenerator func() string,
	now func() time.Time,
	loanPeriod time.Duration,
	logger *slog.Logger,
) *LoanService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return &LoanService{
		loans:       loans,
		books:       books,
		users:       users,
		logs:        logs,
		catalog:     catalog,
		idGenerator: idGenerator,
		now:         now,
		loanPeriod:  loanPeriod,
		logger:      defaultLogger(logger),
	}
}

func (s *LoanService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LoanService", operation, attrs...)
}

// BorrowBook creates an active loan for the actor and takes one available
// copy of the book. The loan insert and the copy decrement are a single
// atomic unit in the store, so losing the availability race leaves no
// dangling loan behind.
func (s *LoanService) BorrowBook(ctx context.Context, params BorrowBookParams) (loan persistence.Loan, err error) {
	logger := s.loggerWith(ctx, "BorrowBook",
		"user_id", params.Principal.UserID,
		"book_id", params.BookID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "borrow failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("loan_id", loan.ID).InfoContext(ctx, "book borrowed")
	}()

	if !params.Principal.IsAuthenticated() {
		err = ErrUnauthorized
		return
	}

	// The principal comes from a verified token, but the account may have
	// been removed since the token was issued.
	if _, err = s.users.GetUser(ctx, params.Principal.UserID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	var book persistence.Book
	book, err = s.books.GetBook(ctx, params.BookID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	if book.AvailableCopies <= 0 {
		err = invalidArgumentf("no copies are available for borrowing")
		return
	}

	if _, findErr := s.loans.FindActiveLoan(ctx, params.Principal.UserID, params.BookID); findErr == nil {
		err = conflictf("book already borrowed and not yet returned")
		return
	} else if !errors.Is(findErr, persistence.ErrNotFound) {
		err = findErr
		return
	}

	now := s.now()
	dueAt := now.Add(s.loanPeriod)
	if params.DueAt != nil {
		dueAt = *params.DueAt
	}
	if !dueAt.After(now) {
		err = invalidArgumentf("due date must be in the future")
		return
	}

	loan = persistence.Loan{
		ID:         s.idGenerator(),
		UserID:     params.Principal.UserID,
		BookID:     params.BookID,
		Status:     persistence.LoanBorrowed,
		BorrowedAt: now,
		DueAt:      dueAt,
		CreatedAt:  now,
	}

	if err = s.loans.BorrowBook(ctx, loan); err != nil {
		switch {
		case errors.Is(err, persistence.ErrDuplicate):
			// A concurrent borrow by the same user landed first; the partial
			// unique index rejected ours.
			err = conflictf("book already borrowed and not yet returned")
		case errors.Is(err, persistence.ErrNoMatch):
			// The last copy was taken between the availability check and the
			// guarded decrement. The transaction rolled the loan insert back.
			err = invalidArgumentf("unable to update book availability")
		case errors.Is(err, persistence.ErrForeignKeyViolation):
			err = ErrNotFound
		}
		loan = persistence.Loan{}
		return
	}

	s.appendAudit(ctx, params.Principal.UserID, &params.BookID, "BORROW_BOOK",
		fmt.Sprintf("%s borrowed %s", params.Principal.Email, book.Title))

	return loan, nil
}

// ReturnBook closes an active loan. Only the borrower or an administrator may
// return it, the BORROWED -> RETURNED transition happens exactly once, and
// the copy is given back to the book bounded by its current total.
func (s *LoanService) ReturnBook(ctx context.Context, params ReturnBookParams) (loan persistence.Loan, err error) {
	logger := s.loggerWith(ctx, "ReturnBook",
		"user_id", params.Principal.UserID,
		"loan_id", params.LoanID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "return failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "book returned")
	}()

	if !params.Principal.IsAuthenticated() {
		err = ErrUnauthorized
		return
	}

	loan, err = s.loans.GetLoan(ctx, params.LoanID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	if loan.Status != persistence.LoanBorrowed {
		err = invalidArgumentf("loan has already been closed")
		loan = persistence.Loan{}
		return
	}

	if !params.Principal.IsAdmin() && loan.UserID != params.Principal.UserID {
		err = ErrForbidden
		loan = persistence.Loan{}
		return
	}

	returnedAt := s.now()
	if err = s.loans.MarkReturned(ctx, params.LoanID, returnedAt); err != nil {
		if errors.Is(err, persistence.ErrNoMatch) {
			// Another caller closed the loan between our read and the guarded
			// update.
			err = invalidArgumentf("loan has already been closed")
		}
		loan = persistence.Loan{}
		return
	}

	if incErr := s.catalog.IncrementAvailable(ctx, loan.BookID); incErr != nil {
		if errors.Is(incErr, persistence.ErrNoMatch) {
			// The book is already at its total: its total copy count shrank
			// while this loan was outstanding. The returned copy has no slot,
			// which is tolerated but worth flagging.
			logger.WarnContext(ctx, "returned copy had no room in the catalog",
				"book_id", loan.BookID)
		} else {
			err = incErr
			loan = persistence.Loan{}
			return
		}
	}

	loan.Status = persistence.LoanReturned
	loan.ReturnedAt = &returnedAt

	s.appendAudit(ctx, params.Principal.UserID, &loan.BookID, "RETURN_BOOK",
		fmt.Sprintf("%s returned loan %s", params.Principal.Email, loan.ID))

	return loan, nil
}

// ListMyLoans returns the actor's loans joined with display fields, newest
// borrowed first.
func (s *LoanService) ListMyLoans(ctx context.Context, principal Principal) ([]persistence.LoanDetails, error) {
	if !principal.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	return s.loans.ListLoansByUser(ctx, principal.UserID)
}

// ListAllLoans returns every user's loans for administrators.
func (s *LoanService) ListAllLoans(ctx context.Context, principal Principal) ([]persistence.LoanDetails, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.loans.ListAllLoans(ctx)
}

func (s *LoanService) appendAudit(ctx context.Context, userID string, bookID *string, action, message string) {
	entry := persistence.ActivityLog{
		ID:        s.idGenerator(),
		UserID:    &userID,
		BookID:    bookID,
		Action:    action,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		s.loggerWith(ctx, action).ErrorContext(ctx, "failed to append audit entry", "error", err)
	}
}
