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

type loanService interface {
	BorrowBook(ctx context.Context, params application.BorrowBookParams) (persistence.Loan, error)
	ReturnBook(ctx context.Context, params application.ReturnBookParams) (persistence.Loan, error)
	ListMyLoans(ctx context.Context, principal application.Principal) ([]persistence.LoanDetails, error)
	ListAllLoans(ctx context.Context, principal application.Principal) ([]persistence.LoanDetails, error)
}

type LoanHandler struct {
	service   loanService
	responder responder
	logger    *slog.Logger
}

func NewLoanHandler(service loanService, logger *slog.Logger) *LoanHandler {
	base := defaultLogger(logger)
	return &LoanHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LoanHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LoanHandler", operation, attrs...)
}

func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Borrow", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode borrow request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	bookID := strings.TrimSpace(req.BookID)
	if bookID == "" {
		h.log(r.Context(), "Borrow", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing book id in borrow request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookID)
		return
	}

	var dueAt *time.Time
	if strings.TrimSpace(req.DueAt) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DueAt))
		if err != nil {
			h.log(r.Context(), "Borrow", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "unparseable due date", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		dueAt = &parsed
	}

	logger := h.log(r.Context(), "Borrow", "principal_id", principal.UserID, "book_id", bookID)

	loan, err := h.service.BorrowBook(r.Context(), application.BorrowBookParams{
		Principal: principal,
		BookID:    bookID,
		DueAt:     dueAt,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "borrow failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("loan_id", loan.ID).InfoContext(r.Context(), "book borrowed")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loanResponse{Loan: toLoanDTO(loan)})
}

func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loanID, ok := LoanIDFromContext(r.Context())
	if !ok || strings.TrimSpace(loanID) == "" {
		h.log(r.Context(), "Return", "error_kind", "bad_request").ErrorContext(r.Context(), "missing loan id for return")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLoanID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Return", "principal_id", principal.UserID, "loan_id", loanID)

	loan, err := h.service.ReturnBook(r.Context(), application.ReturnBookParams{
		Principal: principal,
		LoanID:    loanID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "return failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "book returned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loanResponse{Loan: toLoanDTO(loan)})
}

func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListMine", "principal_id", principal.UserID)

	loans, err := h.service.ListMyLoans(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "loan list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(loans)).InfoContext(r.Context(), "loans listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLoansResponse{Loans: toLoanDetailDTOs(loans)})
}

func (h *LoanHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListAll", "principal_id", principal.UserID)

	loans, err := h.service.ListAllLoans(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "loan list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(loans)).InfoContext(r.Context(), "loans listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLoansResponse{Loans: toLoanDetailDTOs(loans)})
}

type borrowRequest struct {
	BookID string `json:"book_id"`
	DueAt  string `json:"due_at,omitempty"`
}

type loanResponse struct {
	Loan loanDTO `json:"loan"`
}

type listLoansResponse struct {
	Loans []loanDetailDTO `json:"loans"`
}

type loanDTO struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	BookID     string  `json:"book_id"`
	Status     string  `json:"status"`
	BorrowedAt string  `json:"borrowed_at"`
	DueAt      string  `json:"due_at"`
	ReturnedAt *string `json:"returned_at,omitempty"`
}

type loanDetailDTO struct {
	loanDTO
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
}

func toLoanDTO(loan persistence.Loan) loanDTO {
	dto := loanDTO{
		ID:         loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		Status:     string(loan.Status),
		BorrowedAt: loan.BorrowedAt.UTC().Format(time.RFC3339Nano),
		DueAt:      loan.DueAt.UTC().Format(time.RFC3339Nano),
	}
	if loan.ReturnedAt != nil {
		returned := loan.ReturnedAt.UTC().Format(time.RFC3339Nano)
		dto.ReturnedAt = &returned
	}
	return dto
}

func toLoanDetailDTOs(loans []persistence.LoanDetails) []loanDetailDTO {
	if len(loans) == 0 {
		return nil
	}
	out := make([]loanDetailDTO, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loanDetailDTO{
			loanDTO:    toLoanDTO(loan.Loan),
			UserName:   loan.UserName,
			UserEmail:  loan.UserEmail,
			BookTitle:  loan.BookTitle,
			BookAuthor: loan.BookAuthor,
		})
	}
	return out
}
