package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/library-service/internal/persistence"
	"github.com/example/library-service/internal/testfixtures"
)

func newSessionFixture(t *testing.T, harness *testfixtures.SQLiteHarness, idx int, expiresAt time.Time) persistence.Session {
	t.Helper()
	ctx := context.Background()

	user := testfixtures.NewUserFixture()
	require.NoError(t, harness.Users.CreateUser(ctx, user))

	session := persistence.Session{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    user.ID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: expiresAt,
		CreatedAt: testfixtures.ReferenceTime(),
	}
	require.NoError(t, harness.Sessions.CreateSession(ctx, session))
	return session
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	expiry := testfixtures.ReferenceTime().Add(24 * time.Hour)
	session := newSessionFixture(t, harness, 1, expiry)

	stored, err := harness.Sessions.GetSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
	assert.Equal(t, session.UserID, stored.UserID)
	assert.True(t, stored.ExpiresAt.Equal(expiry))
	assert.Nil(t, stored.RevokedAt)

	_, err = harness.Sessions.GetSession(ctx, "unknown-token")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = harness.Sessions.GetSession(ctx, "")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestSessionRepository_RevokeSession(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	session := newSessionFixture(t, harness, 1, testfixtures.ReferenceTime().Add(24*time.Hour))

	revokedAt := testfixtures.ReferenceTime().Add(time.Hour)
	require.NoError(t, harness.Sessions.RevokeSession(ctx, session.Token, revokedAt))

	stored, err := harness.Sessions.GetSession(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.RevokedAt)
	assert.True(t, stored.RevokedAt.Equal(revokedAt))

	t.Run("revoking twice matches no row", func(t *testing.T) {
		err := harness.Sessions.RevokeSession(ctx, session.Token, revokedAt.Add(time.Hour))
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("revoking an unknown token", func(t *testing.T) {
		err := harness.Sessions.RevokeSession(ctx, "unknown-token", revokedAt)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	now := testfixtures.ReferenceTime()
	expired := newSessionFixture(t, harness, 1, now.Add(-time.Hour))
	live := newSessionFixture(t, harness, 2, now.Add(24*time.Hour))

	require.NoError(t, harness.Sessions.DeleteExpiredSessions(ctx, now))

	_, err := harness.Sessions.GetSession(ctx, expired.Token)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = harness.Sessions.GetSession(ctx, live.Token)
	assert.NoError(t, err)
}
