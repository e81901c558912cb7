package application

import (
	"context"
	"time"

	"github.com/example/library-service/internal/persistence"
)

type userRepoStub struct {
	createErr error
	created   persistence.User

	users map[string]persistence.User

	listErr error
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.users == nil {
		s.users = make(map[string]persistence.User)
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	s.created = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

type bookRepoStub struct {
	createErr error
	created   persistence.Book

	updateErr      error
	updated        persistence.Book
	updateExpected int

	deleteErr error
	deletedID string

	books map[string]persistence.Book

	searchResult []persistence.Book
	searchErr    error
	searchFilter persistence.BookFilter

	decrementErr error
	decremented  []string
	incrementErr error
	incremented  []string
}

func (s *bookRepoStub) CreateBook(ctx context.Context, book persistence.Book) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.books == nil {
		s.books = make(map[string]persistence.Book)
	}
	s.books[book.ID] = book
	s.created = book
	return nil
}

func (s *bookRepoStub) UpdateBook(ctx context.Context, book persistence.Book, expectedAvailable int) error {
	s.updateExpected = expectedAvailable
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.books == nil {
		s.books = make(map[string]persistence.Book)
	}
	s.books[book.ID] = book
	s.updated = book
	return nil
}

func (s *bookRepoStub) DeleteBook(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.books, id)
	s.deletedID = id
	return nil
}

func (s *bookRepoStub) GetBook(ctx context.Context, id string) (persistence.Book, error) {
	book, ok := s.books[id]
	if !ok {
		return persistence.Book{}, persistence.ErrNotFound
	}
	return book, nil
}

func (s *bookRepoStub) GetBookByISBN(ctx context.Context, isbn string) (persistence.Book, error) {
	for _, book := range s.books {
		if book.ISBN == isbn {
			return book, nil
		}
	}
	return persistence.Book{}, persistence.ErrNotFound
}

func (s *bookRepoStub) SearchBooks(ctx context.Context, filter persistence.BookFilter) ([]persistence.Book, error) {
	s.searchFilter = filter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResult, nil
}

func (s *bookRepoStub) DecrementAvailable(ctx context.Context, id string) error {
	if s.decrementErr != nil {
		return s.decrementErr
	}
	s.decremented = append(s.decremented, id)
	return nil
}

func (s *bookRepoStub) IncrementAvailable(ctx context.Context, id string) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.incremented = append(s.incremented, id)
	return nil
}

type loanRepoStub struct {
	borrowErr error
	borrowed  persistence.Loan

	markErr        error
	markedLoanID   string
	markedReturned time.Time

	loans map[string]persistence.Loan

	activeLoan    persistence.Loan
	activeLoanErr error

	byUser    []persistence.LoanDetails
	byUserErr error
	all       []persistence.LoanDetails
	allErr    error
}

func (s *loanRepoStub) BorrowBook(ctx context.Context, loan persistence.Loan) error {
	if s.borrowErr != nil {
		return s.borrowErr
	}
	if s.loans == nil {
		s.loans = make(map[string]persistence.Loan)
	}
	s.loans[loan.ID] = loan
	s.borrowed = loan
	return nil
}

func (s *loanRepoStub) MarkReturned(ctx context.Context, loanID string, returnedAt time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markedLoanID = loanID
	s.markedReturned = returnedAt
	return nil
}

func (s *loanRepoStub) GetLoan(ctx context.Context, id string) (persistence.Loan, error) {
	loan, ok := s.loans[id]
	if !ok {
		return persistence.Loan{}, persistence.ErrNotFound
	}
	return loan, nil
}

func (s *loanRepoStub) FindActiveLoan(ctx context.Context, userID, bookID string) (persistence.Loan, error) {
	if s.activeLoanErr != nil {
		return persistence.Loan{}, s.activeLoanErr
	}
	if s.activeLoan.ID == "" {
		return persistence.Loan{}, persistence.ErrNotFound
	}
	return s.activeLoan, nil
}

func (s *loanRepoStub) ListLoansByUser(ctx context.Context, userID string) ([]persistence.LoanDetails, error) {
	if s.byUserErr != nil {
		return nil, s.byUserErr
	}
	return s.byUser, nil
}

func (s *loanRepoStub) ListAllLoans(ctx context.Context) ([]persistence.LoanDetails, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	return s.all, nil
}

type logRepoStub struct {
	appendErr error
	entries   []persistence.ActivityLog

	listResult []persistence.ActivityLogDetails
	listErr    error
	listLimit  int
}

func (s *logRepoStub) AppendLog(ctx context.Context, entry persistence.ActivityLog) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *logRepoStub) ListLogs(ctx context.Context, limit int) ([]persistence.ActivityLogDetails, error) {
	s.listLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listResult, nil
}

type sessionRepoStub struct {
	createErr error
	created   persistence.Session

	sessions map[string]persistence.Session

	revokeErr     error
	revokedToken  string
	deleteErr     error
	deletedBefore time.Time
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session persistence.Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.sessions == nil {
		s.sessions = make(map[string]persistence.Session)
	}
	s.sessions[session.Token] = session
	s.created = session
	return nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	s.revokedToken = token
	return nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedBefore = reference
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

