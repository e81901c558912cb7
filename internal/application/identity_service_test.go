package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/library-service/internal/persistence"
	"github.com/example/library-service/internal/testfixtures"
)

func newIdentityService(users *userRepoStub, logs *logRepoStub) *IdentityService {
	if users == nil {
		users = &userRepoStub{}
	}
	if logs == nil {
		logs = &logRepoStub{}
	}
	// Weak hash parameters keep the argon2 work factor out of the test runtime.
	params := Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	ids := testfixtures.NewIDGenerator("user")
	return NewIdentityService(users, logs, params, ids.NextFunc(), testfixtures.NewClock(testTime).NowFunc(), nil)
}

func TestIdentityService_Register(t *testing.T) {
	t.Run("validates required attributes", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		_, err := svc.Register(context.Background(), RegisterParams{Name: " ", Email: "", Password: ""})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "email", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects malformed email addresses", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		_, err := svc.Register(context.Background(), RegisterParams{
			Name:     "Member",
			Email:    "not-an-email",
			Password: "correct horse",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatalf("expected email validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		_, err := svc.Register(context.Background(), RegisterParams{
			Name:     "Member",
			Email:    "member@example.com",
			Password: "short",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["password"]; !ok {
			t.Fatalf("expected password validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("creates a USER account with lowercased email", func(t *testing.T) {
		users := &userRepoStub{}
		logs := &logRepoStub{}
		svc := newIdentityService(users, logs)

		user, err := svc.Register(context.Background(), RegisterParams{
			Name:     "Member",
			Email:    "Member@Example.COM",
			Password: "correct horse",
		})
		if err != nil {
			t.Fatalf("Register returned error: %v", err)
		}

		if user.Email != "member@example.com" {
			t.Fatalf("expected lowercased email, got %q", user.Email)
		}
		if user.Role != persistence.RoleUser {
			t.Fatalf("expected USER role, got %s", user.Role)
		}
		if !strings.HasPrefix(users.created.PasswordHash, "$argon2id$") {
			t.Fatalf("expected argon2id digest, got %q", users.created.PasswordHash)
		}
		if len(logs.entries) != 1 || logs.entries[0].Action != "REGISTER" {
			t.Fatalf("expected REGISTER audit entry, got %+v", logs.entries)
		}
		if logs.entries[0].Message != "User member@example.com registered" {
			t.Fatalf("unexpected audit message %q", logs.entries[0].Message)
		}
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		users := &userRepoStub{users: map[string]persistence.User{
			"existing": {ID: "existing", Email: "member@example.com"},
		}}
		svc := newIdentityService(users, nil)

		_, err := svc.Register(context.Background(), RegisterParams{
			Name:     "Member",
			Email:    "member@example.com",
			Password: "correct horse",
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestIdentityService_CreateMember(t *testing.T) {
	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		_, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: plainUser,
			Name:      "Member",
			Email:     "member@example.com",
			Password:  "correct horse",
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		_, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: adminUser,
			Name:      "Member",
			Email:     "member@example.com",
			Password:  "correct horse",
			Role:      persistence.Role("SUPERUSER"),
		})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("creates an account with the requested role and audits the actor", func(t *testing.T) {
		users := &userRepoStub{}
		logs := &logRepoStub{}
		svc := newIdentityService(users, logs)

		user, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: adminUser,
			Name:      "Second Admin",
			Email:     "second@library.local",
			Password:  "correct horse",
			Role:      persistence.RoleAdmin,
		})
		if err != nil {
			t.Fatalf("CreateMember returned error: %v", err)
		}

		if user.Role != persistence.RoleAdmin {
			t.Fatalf("expected ADMIN role, got %s", user.Role)
		}
		if len(logs.entries) != 1 || logs.entries[0].Action != "CREATE_USER" {
			t.Fatalf("expected CREATE_USER audit entry, got %+v", logs.entries)
		}
		if logs.entries[0].Message != "Admin admin@library.local created second@library.local" {
			t.Fatalf("unexpected audit message %q", logs.entries[0].Message)
		}
	})

	t.Run("defaults a missing role to USER", func(t *testing.T) {
		svc := newIdentityService(&userRepoStub{}, nil)

		user, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: adminUser,
			Name:      "Member",
			Email:     "member@example.com",
			Password:  "correct horse",
		})
		if err != nil {
			t.Fatalf("CreateMember returned error: %v", err)
		}
		if user.Role != persistence.RoleUser {
			t.Fatalf("expected USER role, got %s", user.Role)
		}
	})
}

func TestIdentityService_GetProfile(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		if _, err := svc.GetProfile(context.Background(), Principal{}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("returns the sanitized account", func(t *testing.T) {
		users := &userRepoStub{users: map[string]persistence.User{
			plainUser.UserID: {
				ID:           plainUser.UserID,
				Name:         "Member",
				Email:        plainUser.Email,
				PasswordHash: "secret-digest",
				Role:         persistence.RoleUser,
				CreatedAt:    testTime,
			},
		}}
		svc := newIdentityService(users, nil)

		user, err := svc.GetProfile(context.Background(), plainUser)
		if err != nil {
			t.Fatalf("GetProfile returned error: %v", err)
		}
		if user.Email != plainUser.Email || user.Name != "Member" {
			t.Fatalf("unexpected profile %+v", user)
		}
	})
}

func TestIdentityService_ListUsers(t *testing.T) {
	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := newIdentityService(nil, nil)

		if _, err := svc.ListUsers(context.Background(), plainUser); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("returns every account", func(t *testing.T) {
		users := &userRepoStub{users: map[string]persistence.User{
			"u1": {ID: "u1", Email: "a@example.com"},
			"u2": {ID: "u2", Email: "b@example.com"},
		}}
		svc := newIdentityService(users, nil)

		list, err := svc.ListUsers(context.Background(), adminUser)
		if err != nil {
			t.Fatalf("ListUsers returned error: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected two accounts, got %d", len(list))
		}
	})
}
