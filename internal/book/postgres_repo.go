package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/entity"
)

// Columns is the select list ScanBook expects, usable with a "b." alias.
const Columns = `id, COALESCE(isbn13, ''), COALESCE(isbn, ''), COALESCE(book_id, ''), COALESCE(barcode, ''),
	title, author, location, total_copies, available_copies, registered_by, created_at, updated_at`

// ScanBook reads one row selected with Columns.
func ScanBook(row pgx.Row) (entity.Book, error) {
	var b entity.Book
	err := row.Scan(
		&b.ID, &b.ISBN13, &b.LegacyISBN, &b.ExternalCode, &b.Barcode,
		&b.Title, &b.Author, &b.Location, &b.TotalCopies, &b.AvailableCopies, &b.RegisteredBy,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) FindBy(ctx context.Context, field Field, value string) (entity.Book, error) {
	if !field.Valid() {
		return entity.Book{}, fmt.Errorf("find book: unknown field %q", field)
	}
	// field is whitelisted above, so interpolating the column name is safe.
	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s = $1 ORDER BY created_at LIMIT 1`, Columns, string(field))

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := ScanBook(r.db.QueryRow(timeoutCtx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, ErrNotFound
		}
		return entity.Book{}, fmt.Errorf("find book by %s: %w", field, err)
	}
	return b, nil
}

func (r *PostgresRepo) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE title ILIKE $1 ESCAPE '\' OR author ILIKE $1 ESCAPE '\'
		ORDER BY title
		LIMIT $2`, Columns)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, "%"+EscapeLike(q)+"%", ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	out := []entity.Book{}
	for rows.Next() {
		b, err := ScanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards for a pattern used with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
