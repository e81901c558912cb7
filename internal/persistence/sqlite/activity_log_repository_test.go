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

func appendLogEntry(t *testing.T, harness *testfixtures.SQLiteHarness, idx int, userID, bookID *string) persistence.ActivityLog {
	t.Helper()

	entry := persistence.ActivityLog{
		ID:        fmt.Sprintf("log-%03d", idx),
		UserID:    userID,
		BookID:    bookID,
		Action:    "BORROW_BOOK",
		Message:   fmt.Sprintf("entry %03d", idx),
		CreatedAt: testfixtures.ReferenceTime().Add(time.Duration(idx) * time.Minute),
	}
	require.NoError(t, harness.Logs.AppendLog(context.Background(), entry))
	return entry
}

func TestActivityLogRepository_AppendAndList(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture()
	require.NoError(t, harness.Users.CreateUser(ctx, user))
	book := testfixtures.NewBookFixture()
	require.NoError(t, harness.Books.CreateBook(ctx, book))

	first := appendLogEntry(t, harness, 1, &user.ID, &book.ID)
	second := appendLogEntry(t, harness, 2, &user.ID, nil)

	entries, err := harness.Logs.ListLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	require.NotNil(t, entries[1].UserName)
	assert.Equal(t, user.Name, *entries[1].UserName)
	require.NotNil(t, entries[1].BookTitle)
	assert.Equal(t, book.Title, *entries[1].BookTitle)

	assert.Nil(t, entries[0].BookID)
	assert.Nil(t, entries[0].BookTitle)
}

func TestActivityLogRepository_LimitCapsTheResult(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	for idx := 1; idx <= 5; idx++ {
		appendLogEntry(t, harness, idx, nil, nil)
	}

	entries, err := harness.Logs.ListLogs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "log-005", entries[0].ID)
	assert.Equal(t, "log-003", entries[2].ID)
}

func TestActivityLogRepository_EntriesSurviveReferenceDeletion(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	admin := testfixtures.NewUserFixture(testfixtures.WithUserRole(persistence.RoleAdmin))
	require.NoError(t, harness.Users.CreateUser(ctx, admin))
	book := testfixtures.NewBookFixture()
	require.NoError(t, harness.Books.CreateBook(ctx, book))

	entry := appendLogEntry(t, harness, 1, &admin.ID, &book.ID)

	require.NoError(t, harness.Books.DeleteBook(ctx, book.ID))

	entries, err := harness.Logs.ListLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, entry.Message, entries[0].Message)

	// The foreign key is cleared, so both the reference and the joined
	// title come back nil.
	assert.Nil(t, entries[0].BookID)
	assert.Nil(t, entries[0].BookTitle)
	require.NotNil(t, entries[0].UserName)
	assert.Equal(t, admin.Name, *entries[0].UserName)
}
