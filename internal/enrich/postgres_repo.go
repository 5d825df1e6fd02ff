package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/book"
	"librarydesk/internal/entity"
)

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

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const sql = `
		INSERT INTO enrich_runs (started_at, status, batch_size)
		VALUES ($1, $2, $3)
		RETURNING id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var id string
	err := r.db.QueryRow(ctx, sql, run.StartedAt, string(run.Status), run.BatchSize).Scan(&id)
	return id, err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE enrich_runs SET
			finished_at = $1,
			status = $2,
			scanned = $3,
			enriched = $4,
			skipped = $5,
			failed = $6,
			error = $7
		WHERE id = $8`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(ctx, sql, run.FinishedAt, string(run.Status), run.Scanned, run.Enriched, run.Skipped, run.Failed, run.Error, run.ID)
	return err
}

func (r *PostgresRepo) LinkBook(ctx context.Context, runID, bookID string) error {
	const sql = `
		INSERT INTO enrich_run_books (run_id, book_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(ctx, sql, runID, bookID)
	return err
}

// PostgresBooks implements Books over the books table.
type PostgresBooks struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresBooks(db *pgxpool.Pool, timeout time.Duration) *PostgresBooks {
	return &PostgresBooks{db: db, timeout: timeout}
}

func (r *PostgresBooks) PlaceholderBooks(ctx context.Context, placeholder string, limit int) ([]entity.Book, error) {
	query := `SELECT ` + book.Columns + ` FROM books
		WHERE author = $1 AND isbn13 IS NOT NULL
		ORDER BY created_at
		LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.Query(ctx, query, placeholder, limit)
	if err != nil {
		return nil, fmt.Errorf("query placeholder books: %w", err)
	}
	defer rows.Close()

	var out []entity.Book
	for rows.Next() {
		b, err := book.ScanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresBooks) UpdateDetails(ctx context.Context, id, title, author string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	tag, err := r.db.Exec(ctx,
		`UPDATE books SET title = $2, author = $3, updated_at = now() WHERE id = $1`,
		id, title, author)
	if err != nil {
		return fmt.Errorf("update book %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}
