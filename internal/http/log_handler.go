package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/persistence"
)

type auditService interface {
	ListLogs(ctx context.Context, principal application.Principal, limit int) ([]persistence.ActivityLogDetails, error)
}

type LogHandler struct {
	service   auditService
	responder responder
	logger    *slog.Logger
}

func NewLogHandler(service auditService, logger *slog.Logger) *LogHandler {
	base := defaultLogger(logger)
	return &LogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LogHandler", operation, attrs...)
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.log(r.Context(), "List", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid limit parameter", "limit", raw)
			h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Message: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID, "limit", limit)

	entries, err := h.service.ListLogs(r.Context(), principal, limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "log list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(entries)).InfoContext(r.Context(), "activity logs listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLogsResponse{Logs: toLogDTOs(entries)})
}

type listLogsResponse struct {
	Logs []activityLogDTO `json:"logs"`
}

type activityLogDTO struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id,omitempty"`
	BookID    *string `json:"book_id,omitempty"`
	UserName  *string `json:"user_name,omitempty"`
	BookTitle *string `json:"book_title,omitempty"`
	Action    string  `json:"action"`
	Message   string  `json:"message"`
	CreatedAt string  `json:"created_at"`
}

func toLogDTOs(entries []persistence.ActivityLogDetails) []activityLogDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make([]activityLogDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, activityLogDTO{
			ID:        entry.ID,
			UserID:    entry.UserID,
			BookID:    entry.BookID,
			UserName:  entry.UserName,
			BookTitle: entry.BookTitle,
			Action:    entry.Action,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
