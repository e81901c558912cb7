package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/example/library-service/internal/persistence"
)

const dialectSQLite = "sqlite3"

// BookRepository implements persistence.BookRepository using SQLite.
type BookRepository struct {
	pool *ConnectionPool
}

// NewBookRepository creates a SQLite-backed book repository.
func NewBookRepository(pool *ConnectionPool) *BookRepository {
	return &BookRepository{pool: pool}
}

// CreateBook inserts a new catalog entry.
func (r *BookRepository) CreateBook(ctx context.Context, book persistence.Book) error {
	if book.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO books (id, title, author, genre, isbn, total_copies, available_copies, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.db.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.Genre,
		book.ISBN,
		book.TotalCopies,
		book.AvailableCopies,
		nullableString(book.Description),
		formatTimestamp(book.CreatedAt),
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// UpdateBook replaces every mutable column of an existing book, guarded on
// available_copies still holding the value the caller read. A borrow or
// return racing the update changes that count and the write is refused with
// ErrNoMatch instead of silently restoring the moved copy.
func (r *BookRepository) UpdateBook(ctx context.Context, book persistence.Book, expectedAvailable int) error {
	query := `
		UPDATE books
		SET title = ?, author = ?, genre = ?, isbn = ?, total_copies = ?, available_copies = ?, description = ?
		WHERE id = ? AND available_copies = ?
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		book.Title,
		book.Author,
		book.Genre,
		book.ISBN,
		book.TotalCopies,
		book.AvailableCopies,
		nullableString(book.Description),
		book.ID,
		expectedAvailable,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var one int
		err := r.pool.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, book.ID).Scan(&one)
		if err == sql.ErrNoRows {
			return persistence.ErrNotFound
		}
		if err != nil {
			return mapError(err)
		}
		return persistence.ErrNoMatch
	}

	return nil
}

// DeleteBook removes a book by ID.
func (r *BookRepository) DeleteBook(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetBook retrieves a book by ID.
func (r *BookRepository) GetBook(ctx context.Context, id string) (persistence.Book, error) {
	if id == "" {
		return persistence.Book{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, title, author, genre, isbn, total_copies, available_copies, description, created_at
		FROM books
		WHERE id = ?
	`, id)

	return scanBook(row)
}

// GetBookByISBN retrieves a book by its ISBN.
func (r *BookRepository) GetBookByISBN(ctx context.Context, isbn string) (persistence.Book, error) {
	if strings.TrimSpace(isbn) == "" {
		return persistence.Book{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, title, author, genre, isbn, total_copies, available_copies, description, created_at
		FROM books
		WHERE isbn = ?
	`, isbn)

	return scanBook(row)
}

// SearchBooks lists books matching the filter, ordered by title then ID. The
// term matches title, author, or ISBN as a case-insensitive substring; genre
// matches as a substring on its own column. An empty filter lists the whole
// catalog.
func (r *BookRepository) SearchBooks(ctx context.Context, filter persistence.BookFilter) ([]persistence.Book, error) {
	stmt := goqu.Dialect(dialectSQLite).
		From("books").
		Select("id", "title", "author", "genre", "isbn", "total_copies", "available_copies", "description", "created_at").
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())

	if term := strings.TrimSpace(filter.Term); term != "" {
		pattern := "%" + term + "%"
		stmt = stmt.Where(goqu.Or(
			goqu.I("title").ILike(pattern),
			goqu.I("author").ILike(pattern),
			goqu.I("isbn").ILike(pattern),
		))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		stmt = stmt.Where(goqu.I("genre").ILike("%" + genre + "%"))
	}

	query, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var books []persistence.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return books, nil
}

// DecrementAvailable atomically takes one available copy. The guard and the
// write are a single statement; ErrNoMatch means no copy was available at the
// moment the statement ran.
func (r *BookRepository) DecrementAvailable(ctx context.Context, id string) error {
	return decrementAvailable(ctx, r.pool.db, id)
}

// IncrementAvailable atomically returns one copy, bounded by total_copies.
// ErrNoMatch means the book was already at its total (or absent).
func (r *BookRepository) IncrementAvailable(ctx context.Context, id string) error {
	return incrementAvailable(ctx, r.pool.db, id)
}

// execContext is satisfied by both *sql.DB and *sql.Tx so the guarded
// copy-count updates can run standalone or inside the borrow transaction.
type execContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func decrementAvailable(ctx context.Context, ec execContext, id string) error {
	result, err := ec.ExecContext(ctx, `
		UPDATE books SET available_copies = available_copies - 1
		WHERE id = ? AND available_copies > 0
	`, id)
	if err != nil {
		return mapError(err)
	}
	return noMatchWhenZero(result)
}

func incrementAvailable(ctx context.Context, ec execContext, id string) error {
	result, err := ec.ExecContext(ctx, `
		UPDATE books SET available_copies = available_copies + 1
		WHERE id = ? AND available_copies < total_copies
	`, id)
	if err != nil {
		return mapError(err)
	}
	return noMatchWhenZero(result)
}

func noMatchWhenZero(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNoMatch
	}
	return nil
}

func scanBook(row rowScanner) (persistence.Book, error) {
	var book persistence.Book
	var description sql.NullString
	var createdAt string

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Genre,
		&book.ISBN,
		&book.TotalCopies,
		&book.AvailableCopies,
		&description,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Book{}, persistence.ErrNotFound
		}
		return persistence.Book{}, mapError(err)
	}

	if description.Valid {
		book.Description = &description.String
	}
	if book.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Book{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return book, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
