package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/library-service/internal/persistence"
)

// DefaultSessionTTL is applied when no session lifetime is configured.
const DefaultSessionTTL = 24 * time.Hour

const sessionTokenBytes = 32

// AuthService authenticates credentials and manages the opaque session tokens
// handed to HTTP clients. Tokens are random, stored server side, and carry no
// embedded claims; validation resolves the full principal from the store.
type AuthService struct {
	users       persistence.UserRepository
	sessions    persistence.SessionRepository
	logs        persistence.ActivityLogRepository
	idGenerator func() string
	now         func() time.Time
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewAuthService wires dependencies for authentication.
func NewAuthService(
	users persistence.UserRepository,
	sessions persistence.SessionRepository,
	logs persistence.ActivityLogRepository,
	idGenerator func() string,
	now func() time.Time,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		logs:        logs,
		idGenerator: idGenerator,
		now:         now,
		sessionTTL:  sessionTTL,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies the presented credentials and issues a session token. An
// unknown email and a wrong password both come back as ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result AuthResult, err error) {
	logger := s.loggerWith(ctx, "Login")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "user logged in")
	}()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		err = ErrUnauthorized
		return
	}

	user, lookupErr := s.users.GetUserByEmail(ctx, email)
	if lookupErr != nil {
		if errors.Is(lookupErr, persistence.ErrNotFound) {
			err = ErrUnauthorized
		} else {
			err = lookupErr
		}
		return
	}

	if err = VerifyPassword(user.PasswordHash, params.Password); err != nil {
		return
	}

	if result, err = s.StartSession(ctx, sanitizeUser(user)); err != nil {
		return
	}

	s.appendAudit(ctx, user.ID, "LOGIN", fmt.Sprintf("%s logged in", user.Email))

	return result, nil
}

// StartSession issues a fresh session token for an already authenticated
// user. Login and registration share this path so a new account receives a
// usable token without a second round trip.
func (s *AuthService) StartSession(ctx context.Context, user User) (result AuthResult, err error) {
	logger := s.loggerWith(ctx, "StartSession", "user_id", user.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to issue session", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if user.ID == "" {
		err = ErrUnauthorized
		return
	}

	token, tokenErr := generateSessionToken()
	if tokenErr != nil {
		err = tokenErr
		return
	}

	now := s.now()
	session := persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err = s.sessions.CreateSession(ctx, session); err != nil {
		return
	}

	result = AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}
	return result, nil
}

// ValidateSession resolves a bearer token to the acting principal. Expired
// and revoked sessions are rejected with distinct errors so the HTTP layer
// can phrase the response accordingly.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}

	return Principal{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

// Logout revokes the presented session token. Revoking an unknown token is
// not an error; the caller ends up logged out either way.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessions.RevokeSession(ctx, token, s.now())
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	return nil
}

// PruneExpiredSessions removes sessions past their expiry. Intended to run
// periodically from the server loop.
func (s *AuthService) PruneExpiredSessions(ctx context.Context) error {
	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		s.loggerWith(ctx, "PruneExpiredSessions").ErrorContext(ctx, "failed to prune sessions", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) appendAudit(ctx context.Context, userID, action, message string) {
	entry := persistence.ActivityLog{
		ID:        s.idGenerator(),
		UserID:    &userID,
		Action:    action,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		s.loggerWith(ctx, action).ErrorContext(ctx, "failed to append audit entry", "error", err)
	}
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
