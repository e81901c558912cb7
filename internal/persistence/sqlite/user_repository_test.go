package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/library-service/internal/persistence"
	"github.com/example/library-service/internal/testfixtures"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture()
	require.NoError(t, harness.Users.CreateUser(ctx, user))

	stored, err := harness.Users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Equal(t, user.Email, stored.Email)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
	assert.Equal(t, persistence.RoleUser, stored.Role)
	assert.True(t, stored.CreatedAt.Equal(user.CreatedAt))
}

func TestUserRepository_GetUnknownUser(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Users.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestUserRepository_EmailIsStoredLowercased(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Mixed.Case@Example.COM"))
	require.NoError(t, harness.Users.CreateUser(ctx, user))

	stored, err := harness.Users.GetUserByEmail(ctx, "mixed.case@example.com")
	require.NoError(t, err)
	assert.Equal(t, "mixed.case@example.com", stored.Email)
}

func TestUserRepository_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	first := testfixtures.NewUserFixture(testfixtures.WithUserEmail("member@example.com"))
	require.NoError(t, harness.Users.CreateUser(ctx, first))

	second := testfixtures.NewUserFixture(testfixtures.WithUserEmail("MEMBER@example.com"))
	err := harness.Users.CreateUser(ctx, second)
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestUserRepository_ListUsers(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	admin := testfixtures.NewUserFixture(testfixtures.WithUserRole(persistence.RoleAdmin))
	member := testfixtures.NewUserFixture()
	require.NoError(t, harness.Users.CreateUser(ctx, admin))
	require.NoError(t, harness.Users.CreateUser(ctx, member))

	users, err := harness.Users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	byID := map[string]persistence.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	assert.Equal(t, persistence.RoleAdmin, byID[admin.ID].Role)
	assert.Equal(t, persistence.RoleUser, byID[member.ID].Role)
}
