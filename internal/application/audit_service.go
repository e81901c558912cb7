package application

import (
	"context"
	"log/slog"

	"github.com/example/library-service/internal/persistence"
)

// DefaultAuditLimit bounds a log listing when the caller does not ask for a
// specific page size.
const DefaultAuditLimit = 200

// AuditService exposes the append-only activity trail to administrators.
// Entries are written by the other services as side effects of their
// mutations; this service only reads.
type AuditService struct {
	logs         persistence.ActivityLogRepository
	defaultLimit int
	logger       *slog.Logger
}

// NewAuditService wires dependencies for audit trail access.
func NewAuditService(logs persistence.ActivityLogRepository, defaultLimit int, logger *slog.Logger) *AuditService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultAuditLimit
	}
	return &AuditService{
		logs:         logs,
		defaultLimit: defaultLimit,
		logger:       defaultLogger(logger),
	}
}

// ListLogs returns the most recent activity entries, newest first, joined
// with user and book display fields where the referenced rows still exist.
func (s *AuditService) ListLogs(ctx context.Context, principal Principal, limit int) ([]persistence.ActivityLogDetails, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	entries, err := s.logs.ListLogs(ctx, limit)
	if err != nil {
		serviceLogger(ctx, s.logger, "AuditService", "ListLogs").
			ErrorContext(ctx, "failed to list activity logs", "error", err)
		return nil, err
	}
	return entries, nil
}
