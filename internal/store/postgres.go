package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/entity"
)

// Constraint names from db/migrations.
const (
	constraintBooksPkey  = "books_pkey"
	constraintActiveLoan = "loans_one_active_per_user_book"
)

// SQLSTATE codes.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
)

const loanColumns = `id, user_id, book_id, book_title, COALESCE(isbn13, ''), status, checked_out_at, due_at, returned_at`

// Postgres runs circulation transactions at SERIALIZABLE isolation and
// retries serialization failures.
type Postgres struct {
	db      *pgxpool.Pool
	timeout time.Duration
	retry   RetryPolicy
	log     *slog.Logger
}

func NewPostgres(db *pgxpool.Pool, timeout time.Duration, log *slog.Logger) *Postgres {
	return &Postgres{db: db, timeout: timeout, retry: DefaultRetryPolicy, log: log}
}

func (s *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	attempt := 0
	return retryOnConflict(ctx, s.retry, retryablePG, func() error {
		attempt++
		err := s.runOnce(ctx, fn)
		if err != nil && retryablePG(err) {
			s.log.Debug("transaction conflict", "attempt", attempt, "error", err)
		}
		return err
	})
}

func (s *Postgres) runOnce(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(txCtx); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}

// retryablePG reports whether the whole transaction should run again.
func retryablePG(err error) bool {
	if errors.Is(err, errWriteConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// classify maps constraint violations onto the package's sentinels.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintActiveLoan:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, errWriteConflict)
	case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintBooksPkey:
		return circulation.ErrAlreadyRegistered
	case pgErr.Code == codeCheckViolation:
		return fmt.Errorf("%w: %s", circulation.ErrInvariant, pgErr.ConstraintName)
	}
	return err
}

func (s *Postgres) ActiveLoans(ctx context.Context, userID string) ([]entity.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = $1 AND status = 'active' ORDER BY due_at`

	timeoutCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(timeoutCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	defer rows.Close()

	out := []entity.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (entity.Loan, error) {
	var (
		l      entity.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookTitle, &l.ISBN13, &status, &l.CheckedOutAt, &l.DueAt, &l.ReturnedAt)
	l.Status = entity.LoanStatus(status)
	return l, err
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetBook(ctx context.Context, id string) (entity.Book, error) {
	query := `SELECT ` + book.Columns + ` FROM books WHERE id = $1 FOR UPDATE`
	b, err := book.ScanBook(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, book.ErrNotFound
		}
		return entity.Book{}, classify(err)
	}
	return b, nil
}

func (t *pgTx) ActiveLoan(ctx context.Context, userID, bookID string) (entity.Loan, bool, error) {
	query := `SELECT ` + loanColumns + ` FROM loans
		WHERE user_id = $1 AND book_id = $2 AND status = 'active'
		LIMIT 1 FOR UPDATE`
	l, err := scanLoan(t.tx.QueryRow(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Loan{}, false, nil
		}
		return entity.Loan{}, false, classify(err)
	}
	return l, true, nil
}

func (t *pgTx) SetAvailable(ctx context.Context, bookID string, available int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE books SET available_copies = $2, updated_at = now() WHERE id = $1`,
		bookID, available)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() != 1 {
		return book.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertBook(ctx context.Context, b entity.Book) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO books (id, isbn13, isbn, book_id, barcode, title, author, location,
			total_copies, available_copies, registered_by, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.ISBN13, b.LegacyISBN, b.ExternalCode, b.Barcode, b.Title, b.Author, b.Location,
		b.TotalCopies, b.AvailableCopies, b.RegisteredBy, b.CreatedAt, b.UpdatedAt)
	return classify(err)
}

func (t *pgTx) InsertLoan(ctx context.Context, l entity.Loan) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO loans (id, user_id, book_id, book_title, isbn13, status, checked_out_at, due_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		l.ID, l.UserID, l.BookID, l.BookTitle, l.ISBN13, string(l.Status), l.CheckedOutAt, l.DueAt)
	return classify(err)
}

func (t *pgTx) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE loans SET status = 'returned', returned_at = $2 WHERE id = $1 AND status = 'active'`,
		loanID, returnedAt)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("loan %s no longer active: %w", loanID, errWriteConflict)
	}
	return nil
}
