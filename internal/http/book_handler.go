package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/persistence"
)

type catalogService interface {
	CreateBook(ctx context.Context, params application.CreateBookParams) (persistence.Book, error)
	UpdateBook(ctx context.Context, params application.UpdateBookParams) (persistence.Book, error)
	DeleteBook(ctx context.Context, principal application.Principal, bookID string) error
	GetBook(ctx context.Context, bookID string) (persistence.Book, error)
	SearchBooks(ctx context.Context, params application.SearchBooksParams) ([]persistence.Book, error)
}

type BookHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewBookHandler(service catalogService, logger *slog.Logger) *BookHandler {
	base := defaultLogger(logger)
	return &BookHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookHandler", operation, attrs...)
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode book request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	book, err := h.service.CreateBook(r.Context(), application.CreateBookParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "book creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("book_id", book.ID).InfoContext(r.Context(), "book created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookResponse{Book: toBookDTO(book)})
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookID, ok := BookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing book id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "book_id", bookID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode book update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "book_id", bookID)

	book, err := h.service.UpdateBook(r.Context(), application.UpdateBookParams{
		Principal: principal,
		BookID:    bookID,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "book update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "book updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookResponse{Book: toBookDTO(book)})
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookID, ok := BookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing book id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "book_id", bookID)

	if err := h.service.DeleteBook(r.Context(), principal, bookID); err != nil {
		logger.ErrorContext(r.Context(), "book delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "book deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookID, ok := BookIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing book id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookID)
		return
	}

	logger := h.log(r.Context(), "Get", "book_id", bookID)

	book, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		logger.ErrorContext(r.Context(), "book lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookResponse{Book: toBookDTO(book)})
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.SearchBooksParams{
		Term:  query.Get("q"),
		Genre: query.Get("genre"),
	}

	logger := h.log(r.Context(), "Search", "term", params.Term, "genre", params.Genre)

	books, err := h.service.SearchBooks(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "book search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(books)).InfoContext(r.Context(), "books listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBooksResponse{Books: toBookDTOs(books)})
}

type bookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	ISBN        string  `json:"isbn"`
	TotalCopies int     `json:"total_copies"`
	Description *string `json:"description"`
}

func (r bookRequest) toInput() application.BookInput {
	var description *string
	if r.Description != nil {
		trimmed := strings.TrimSpace(*r.Description)
		description = &trimmed
	}
	return application.BookInput{
		Title:       strings.TrimSpace(r.Title),
		Author:      strings.TrimSpace(r.Author),
		Genre:       strings.TrimSpace(r.Genre),
		ISBN:        strings.TrimSpace(r.ISBN),
		TotalCopies: r.TotalCopies,
		Description: description,
	}
}

type bookPatchRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	ISBN        *string `json:"isbn"`
	TotalCopies *int    `json:"total_copies"`
	Description *string `json:"description"`
}

func (r bookPatchRequest) toPatch() application.BookPatch {
	return application.BookPatch{
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		ISBN:        r.ISBN,
		TotalCopies: r.TotalCopies,
		Description: r.Description,
	}
}

type bookResponse struct {
	Book bookDTO `json:"book"`
}

type listBooksResponse struct {
	Books []bookDTO `json:"books"`
}

type bookDTO struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Genre           string  `json:"genre"`
	ISBN            string  `json:"isbn"`
	TotalCopies     int     `json:"total_copies"`
	AvailableCopies int     `json:"available_copies"`
	Description     *string `json:"description,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toBookDTO(book persistence.Book) bookDTO {
	return bookDTO{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Genre:           book.Genre,
		ISBN:            book.ISBN,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		Description:     book.Description,
		CreatedAt:       book.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookDTOs(books []persistence.Book) []bookDTO {
	if len(books) == 0 {
		return nil
	}
	out := make([]bookDTO, 0, len(books))
	for _, book := range books {
		out = append(out, toBookDTO(book))
	}
	return out
}
