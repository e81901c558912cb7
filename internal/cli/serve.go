package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/config"
	httptransport "github.com/example/library-service/internal/http"
	"github.com/example/library-service/internal/logging"
	"github.com/example/library-service/internal/persistence/sqlite"
)

const sessionPruneInterval = time.Hour

// NewServeCommand creates the command that runs the HTTP server.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the library REST API server",
		Long: `Run the library REST API server.

Configuration comes from the environment: LIBRARY_HTTP_PORT,
LIBRARY_SQLITE_DSN, LIBRARY_SESSION_TTL, LIBRARY_LOAN_PERIOD,
LIBRARY_AUDIT_LIMIT and LIBRARY_LOG_LEVEL. All have working defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts)
		},
	}
}

func runServe(rootOpts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.LogLevel
	if rootOpts != nil && rootOpts.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(os.Stdout, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	idGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	bookRepo := sqlite.NewBookRepository(pool)
	loanRepo := sqlite.NewLoanRepository(pool)
	logRepo := sqlite.NewActivityLogRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	catalogService := application.NewCatalogService(bookRepo, logRepo, idGenerator, now, logger)
	loanService := application.NewLoanService(loanRepo, bookRepo, userRepo, logRepo, catalogService, idGenerator, now, cfg.LoanPeriod, logger)
	identityService := application.NewIdentityService(userRepo, logRepo, application.DefaultArgon2idParams, idGenerator, now, logger)
	authService := application.NewAuthService(userRepo, sessionRepo, logRepo, idGenerator, now, cfg.SessionTTL, logger)
	auditService := application.NewAuditService(logRepo, cfg.AuditLimit, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, identityService, logger),
		Books:          httptransport.NewBookHandler(catalogService, logger),
		Loans:          httptransport.NewLoanHandler(loanService, logger),
		Logs:           httptransport.NewLogHandler(auditService, logger),
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	go pruneSessions(ctx, authService, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("library API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func pruneSessions(ctx context.Context, auth *application.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PruneExpiredSessions(ctx); err != nil {
				logger.Error("session pruning failed", "error", err)
			}
		}
	}
}
