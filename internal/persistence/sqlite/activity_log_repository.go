package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/example/library-service/internal/persistence"
)

// ActivityLogRepository implements persistence.ActivityLogRepository using
// SQLite.
type ActivityLogRepository struct {
	pool *ConnectionPool
}

// NewActivityLogRepository creates a SQLite-backed activity log repository.
func NewActivityLogRepository(pool *ConnectionPool) *ActivityLogRepository {
	return &ActivityLogRepository{pool: pool}
}

// AppendLog inserts a log entry. Entries are immutable once written.
func (r *ActivityLogRepository) AppendLog(ctx context.Context, entry persistence.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, user_id, book_id, action, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		entry.ID,
		nullableString(entry.UserID),
		nullableString(entry.BookID),
		entry.Action,
		entry.Message,
		formatTimestamp(entry.CreatedAt),
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// ListLogs returns the newest entries first, joined with the current display
// name of the referenced user and title of the referenced book. LEFT JOINs
// keep entries readable after the referenced rows are deleted; the joined
// fields come back nil in that case.
func (r *ActivityLogRepository) ListLogs(ctx context.Context, limit int) ([]persistence.ActivityLogDetails, error) {
	if limit <= 0 {
		limit = 200
	}

	stmt := goqu.Dialect(dialectSQLite).
		From(goqu.T("activity_logs").As("a")).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("a.user_id")))).
		LeftJoin(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("a.book_id")))).
		Select(
			goqu.I("a.id"), goqu.I("a.user_id"), goqu.I("a.book_id"),
			goqu.I("a.action"), goqu.I("a.message"), goqu.I("a.created_at"),
			goqu.I("u.name"), goqu.I("b.title"),
		).
		Order(goqu.I("a.created_at").Desc(), goqu.I("a.id").Asc()).
		Limit(uint(limit))

	query, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build log query: %w", err)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.ActivityLogDetails
	for rows.Next() {
		var detail persistence.ActivityLogDetails
		var userID, bookID, userName, bookTitle sql.NullString
		var createdAt string

		err := rows.Scan(
			&detail.ID,
			&userID,
			&bookID,
			&detail.Action,
			&detail.Message,
			&createdAt,
			&userName,
			&bookTitle,
		)
		if err != nil {
			return nil, mapError(err)
		}

		detail.UserID = nullStringPtr(userID)
		detail.BookID = nullStringPtr(bookID)
		detail.UserName = nullStringPtr(userName)
		detail.BookTitle = nullStringPtr(bookTitle)
		if detail.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		entries = append(entries, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return entries, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
