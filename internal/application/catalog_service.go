package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/library-service/internal/persistence"
)

// CatalogService owns book entities: creation, update, deletion, and search.
// It enforces ISBN uniqueness and the copy-count invariant
// 0 <= availableCopies <= totalCopies on every mutation.
type CatalogService struct {
	books       persistence.BookRepository
	logs        persistence.ActivityLogRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService wires dependencies for the catalog service.
func NewCatalogService(books persistence.BookRepository, logs persistence.ActivityLogRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		books:       books,
		logs:        logs,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateBook validates input and persists a new catalog entry for
// administrators. Available copies start equal to total copies.
func (s *CatalogService) CreateBook(ctx context.Context, params CreateBookParams) (persistence.Book, error) {
	if err := requireAdmin(params.Principal); err != nil {
		return persistence.Book{}, err
	}

	input := normalizeBookInput(params.Input)
	if vErr := validateBookInput(input); vErr.HasErrors() {
		return persistence.Book{}, vErr
	}
	if input.TotalCopies < 0 {
		return persistence.Book{}, invalidArgumentf("total copies must be zero or greater")
	}

	if _, err := s.books.GetBookByISBN(ctx, input.ISBN); err == nil {
		return persistence.Book{}, conflictf("a book with this ISBN already exists")
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Book{}, err
	}

	book := persistence.Book{
		ID:              s.idGenerator(),
		Title:           input.Title,
		Author:          input.Author,
		Genre:           input.Genre,
		ISBN:            input.ISBN,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
		Description:     input.Description,
		CreatedAt:       s.now(),
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Book{}, conflictf("a book with this ISBN already exists")
		}
		return persistence.Book{}, err
	}

	s.appendAudit(ctx, params.Principal, &book.ID, "CREATE_BOOK",
		fmt.Sprintf("Book %s created by %s", book.Title, params.Principal.Email))

	return book, nil
}

// UpdateBook applies a partial update for administrators. The copies
// currently on loan are computed from the persisted row, the new total may
// not drop below them, and the new available count is derived as
// newTotal - borrowed.
func (s *CatalogService) UpdateBook(ctx context.Context, params UpdateBookParams) (persistence.Book, error) {
	if err := requireAdmin(params.Principal); err != nil {
		return persistence.Book{}, err
	}

	existing, err := s.books.GetBook(ctx, params.BookID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Book{}, ErrNotFound
		}
		return persistence.Book{}, err
	}

	patch := params.Patch
	if patch.ISBN != nil {
		isbn := strings.TrimSpace(*patch.ISBN)
		if isbn == "" {
			vErr := &ValidationError{}
			vErr.add("isbn", "isbn is required")
			return persistence.Book{}, vErr
		}
		if isbn != existing.ISBN {
			if _, err := s.books.GetBookByISBN(ctx, isbn); err == nil {
				return persistence.Book{}, conflictf("another book with this ISBN already exists")
			} else if !errors.Is(err, persistence.ErrNotFound) {
				return persistence.Book{}, err
			}
		}
		patch.ISBN = &isbn
	}

	borrowed := existing.TotalCopies - existing.AvailableCopies
	desiredTotal := existing.TotalCopies
	if patch.TotalCopies != nil {
		if *patch.TotalCopies < 0 {
			return persistence.Book{}, invalidArgumentf("total copies must be zero or greater")
		}
		if *patch.TotalCopies < borrowed {
			return persistence.Book{}, invalidArgumentf("total copies cannot be less than copies currently on loan")
		}
		desiredTotal = *patch.TotalCopies
	}

	updated := existing
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Author != nil {
		updated.Author = strings.TrimSpace(*patch.Author)
	}
	if patch.Genre != nil {
		updated.Genre = strings.TrimSpace(*patch.Genre)
	}
	if patch.ISBN != nil {
		updated.ISBN = *patch.ISBN
	}
	if patch.Description != nil {
		updated.Description = patch.Description
	}
	updated.TotalCopies = desiredTotal
	updated.AvailableCopies = desiredTotal - borrowed

	if err := s.books.UpdateBook(ctx, updated, existing.AvailableCopies); err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return persistence.Book{}, ErrNotFound
		case errors.Is(err, persistence.ErrDuplicate):
			return persistence.Book{}, conflictf("another book with this ISBN already exists")
		case errors.Is(err, persistence.ErrNoMatch):
			return persistence.Book{}, conflictf("book availability changed while updating, retry the update")
		}
		return persistence.Book{}, err
	}

	s.appendAudit(ctx, params.Principal, &updated.ID, "UPDATE_BOOK",
		fmt.Sprintf("Book %s updated by %s", updated.Title, params.Principal.Email))

	return updated, nil
}

// DeleteBook removes a book for administrators. Deletion is refused while any
// copy is on loan.
func (s *CatalogService) DeleteBook(ctx context.Context, principal Principal, bookID string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	existing, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if existing.AvailableCopies != existing.TotalCopies {
		return invalidArgumentf("cannot delete a book that is currently borrowed")
	}

	if err := s.books.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.appendAudit(ctx, principal, &bookID, "DELETE_BOOK",
		fmt.Sprintf("Book %s deleted by %s", existing.Title, principal.Email))

	return nil
}

// GetBook returns a single catalog entry. Public.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (persistence.Book, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Book{}, ErrNotFound
		}
		return persistence.Book{}, err
	}
	return book, nil
}

// SearchBooks lists catalog entries matching the optional term and genre
// filters, ordered by title. Public.
func (s *CatalogService) SearchBooks(ctx context.Context, params SearchBooksParams) ([]persistence.Book, error) {
	return s.books.SearchBooks(ctx, persistence.BookFilter{
		Term:  strings.TrimSpace(params.Term),
		Genre: strings.TrimSpace(params.Genre),
	})
}

// IncrementAvailable gives one copy of a book back, bounded by its total.
// ErrNoMatch from the store is passed through so the loan workflow can apply
// its tolerance policy.
func (s *CatalogService) IncrementAvailable(ctx context.Context, bookID string) error {
	return s.books.IncrementAvailable(ctx, bookID)
}

// DecrementAvailable takes one available copy of a book. ErrNoMatch from the
// store signals that no copy was available.
func (s *CatalogService) DecrementAvailable(ctx context.Context, bookID string) error {
	return s.books.DecrementAvailable(ctx, bookID)
}

func (s *CatalogService) appendAudit(ctx context.Context, principal Principal, bookID *string, action, message string) {
	userID := principal.UserID
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

func normalizeBookInput(input BookInput) BookInput {
	out := BookInput{
		Title:       strings.TrimSpace(input.Title),
		Author:      strings.TrimSpace(input.Author),
		Genre:       strings.TrimSpace(input.Genre),
		ISBN:        strings.TrimSpace(input.ISBN),
		TotalCopies: input.TotalCopies,
		Description: input.Description,
	}
	return out
}

func validateBookInput(input BookInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.Author == "" {
		vErr.add("author", "author is required")
	}
	if input.Genre == "" {
		vErr.add("genre", "genre is required")
	}
	if input.ISBN == "" {
		vErr.add("isbn", "isbn is required")
	}
	return vErr
}
