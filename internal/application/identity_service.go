package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/library-service/internal/persistence"
)

// MinPasswordLength is the minimum accepted password length in runes.
const MinPasswordLength = 8

// IdentityService manages user accounts. Self-service registration always
// produces a USER account; only administrators can mint accounts with an
// explicit role.
type IdentityService struct {
	users       persistence.UserRepository
	logs        persistence.ActivityLogRepository
	hashParams  Argon2idParams
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewIdentityService wires dependencies for account management.
func NewIdentityService(
	users persistence.UserRepository,
	logs persistence.ActivityLogRepository,
	hashParams Argon2idParams,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *IdentityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if hashParams == (Argon2idParams{}) {
		hashParams = DefaultArgon2idParams
	}
	return &IdentityService{
		users:       users,
		logs:        logs,
		hashParams:  hashParams,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *IdentityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "IdentityService", operation, attrs...)
}

// Register creates a USER account from self-service input. The email must be
// unique; the stored address is lowercased so uniqueness is case-insensitive.
func (s *IdentityService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	logger := s.loggerWith(ctx, "Register")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	user, err = s.createUser(ctx, params.Name, params.Email, params.Password, persistence.RoleUser)
	if err != nil {
		return User{}, err
	}

	s.appendAudit(ctx, user.ID, "REGISTER",
		fmt.Sprintf("User %s registered", user.Email))

	return user, nil
}

// CreateMember creates an account on behalf of an administrator, with the
// role chosen by the caller.
func (s *IdentityService) CreateMember(ctx context.Context, params CreateMemberParams) (user User, err error) {
	logger := s.loggerWith(ctx, "CreateMember", "actor_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "member creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "member created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return User{}, err
	}

	role := params.Role
	if role == "" {
		role = persistence.RoleUser
	}
	if role != persistence.RoleUser && role != persistence.RoleAdmin {
		return User{}, invalidArgumentf("unknown role %q", string(params.Role))
	}

	user, err = s.createUser(ctx, params.Name, params.Email, params.Password, role)
	if err != nil {
		return User{}, err
	}

	s.appendAudit(ctx, params.Principal.UserID, "CREATE_USER",
		fmt.Sprintf("Admin %s created %s", params.Principal.Email, user.Email))

	return user, nil
}

// GetProfile returns the actor's own sanitized account.
func (s *IdentityService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if !principal.IsAuthenticated() {
		return User{}, ErrUnauthorized
	}
	stored, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return sanitizeUser(stored), nil
}

// ListUsers returns every account for administrators.
func (s *IdentityService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	stored, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(stored))
	for _, u := range stored {
		users = append(users, sanitizeUser(u))
	}
	return users, nil
}

func (s *IdentityService) createUser(ctx context.Context, name, email, password string, role persistence.Role) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if vErr := validateAccountInput(name, email, password); vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := CreatePasswordHash(password, s.hashParams)
	if err != nil {
		return User{}, err
	}

	stored := persistence.User{
		ID:           s.idGenerator(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, stored); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return User{}, conflictf("email address is already registered")
		}
		return User{}, err
	}
	return sanitizeUser(stored), nil
}

func (s *IdentityService) appendAudit(ctx context.Context, userID, action, message string) {
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

func validateAccountInput(name, email, password string) *ValidationError {
	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email address is malformed")
	}
	if password == "" {
		vErr.add("password", "password is required")
	} else if utf8.RuneCountInString(password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return vErr
}
