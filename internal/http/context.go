package http

import (
	"context"
	"log/slog"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	bookIDContextKey    contextKey = "book_id"
	loanIDContextKey    contextKey = "loan_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithBookID injects the book identifier resolved from the request path.
func ContextWithBookID(ctx context.Context, bookID string) context.Context {
	return context.WithValue(ctx, bookIDContextKey, bookID)
}

// BookIDFromContext extracts a book identifier previously associated with the context.
func BookIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bookIDContextKey).(string)
	return id, ok
}

// ContextWithLoanID injects the loan identifier resolved from the request path.
func ContextWithLoanID(ctx context.Context, loanID string) context.Context {
	return context.WithValue(ctx, loanIDContextKey, loanID)
}

// LoanIDFromContext extracts a loan identifier previously associated with the context.
func LoanIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(loanIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches the per-request logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the per-request logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
