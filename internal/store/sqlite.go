package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/entity"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// sqliteSchemaVersion is bumped whenever sqlite_schema.sql changes. Desk
// databases are local and disposable, so a mismatch is reported rather than
// migrated.
const sqliteSchemaVersion = 1

// ErrSchemaMismatch means a desk database was created by another version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLite result codes; extended codes keep the primary code in the low byte.
const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteConstraint = 19
)

// sqliteTimeLayout is fixed width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteBookColumns = `id, COALESCE(isbn13, ''), COALESCE(isbn, ''), COALESCE(book_id, ''), COALESCE(barcode, ''),
	title, author, location, total_copies, available_copies, registered_by, created_at, updated_at`

const sqliteLoanColumns = `id, user_id, book_id, book_title, COALESCE(isbn13, ''), status, checked_out_at, due_at, returned_at`

// SQLite is a single-file store for a standalone desk. Transactions start
// with BEGIN IMMEDIATE, so writers serialize on the database lock and a
// busy database is retried like a serialization failure.
type SQLite struct {
	db    *sql.DB
	path  string
	retry RetryPolicy
	log   *slog.Logger
	now   func() time.Time
}

// OpenSQLite opens or creates the database at path and checks its schema.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &SQLite{db: db, path: path, retry: DefaultRetryPolicy, log: log, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the handle for repositories that share the file.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) initSchema(ctx context.Context) error {
	var tables int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != sqliteSchemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, s.path, version, sqliteSchemaVersion)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, sqliteSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *SQLite) RunInTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	attempt := 0
	return retryOnConflict(ctx, s.retry, retryableSQLite, func() error {
		attempt++
		err := s.runOnce(ctx, fn)
		if err != nil && retryableSQLite(err) {
			s.log.Debug("transaction conflict", "attempt", attempt, "error", err)
		}
		return err
	})
}

func (s *SQLite) runOnce(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &sqliteTx{tx: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classifySQLite(err))
	}
	return nil
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

// retryableSQLite reports whether the whole transaction should run again.
func retryableSQLite(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errWriteConflict) {
		return true
	}
	if code, ok := sqliteCode(err); ok {
		return code == sqliteBusy || code == sqliteLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// classifySQLite maps constraint failures onto the package's sentinels.
// SQLite reports the failing columns only in the message.
func classifySQLite(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := sqliteCode(err); ok && code != sqliteConstraint {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: loans.user_id, loans.book_id"):
		return fmt.Errorf("loans_one_active_per_user_book: %w", errWriteConflict)
	case strings.Contains(msg, "UNIQUE constraint failed: books.id"):
		return circulation.ErrAlreadyRegistered
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %s", circulation.ErrInvariant, msg)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBook(row rowScanner) (entity.Book, error) {
	var (
		b                entity.Book
		created, updated string
	)
	if err := row.Scan(
		&b.ID, &b.ISBN13, &b.LegacyISBN, &b.ExternalCode, &b.Barcode,
		&b.Title, &b.Author, &b.Location, &b.TotalCopies, &b.AvailableCopies, &b.RegisteredBy,
		&created, &updated,
	); err != nil {
		return entity.Book{}, err
	}
	var err error
	if b.CreatedAt, err = parseTime(created); err != nil {
		return entity.Book{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return entity.Book{}, err
	}
	return b, nil
}

func scanSQLiteLoan(row rowScanner) (entity.Loan, error) {
	var (
		l               entity.Loan
		status          string
		checkedOut, due string
		returned        sql.NullString
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookTitle, &l.ISBN13, &status, &checkedOut, &due, &returned); err != nil {
		return entity.Loan{}, err
	}
	l.Status = entity.LoanStatus(status)
	var err error
	if l.CheckedOutAt, err = parseTime(checkedOut); err != nil {
		return entity.Loan{}, err
	}
	if l.DueAt, err = parseTime(due); err != nil {
		return entity.Loan{}, err
	}
	if returned.Valid {
		at, err := parseTime(returned.String)
		if err != nil {
			return entity.Loan{}, err
		}
		l.ReturnedAt = &at
	}
	return l, nil
}

// InsertBooks adds records outside the circulation flow, as seeding does.
func (s *SQLite) InsertBooks(ctx context.Context, books []entity.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	st := &sqliteTx{tx: tx, now: s.now}
	for _, b := range books {
		if err := st.InsertBook(ctx, b); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// CountBooks returns the number of inventory records.
func (s *SQLite) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (s *SQLite) ActiveLoans(ctx context.Context, userID string) ([]entity.Loan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLoanColumns+` FROM loans WHERE user_id = ? AND status = 'active' ORDER BY due_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	defer rows.Close()

	out := []entity.Loan{}
	for rows.Next() {
		l, err := scanSQLiteLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLite) FindBy(ctx context.Context, field book.Field, value string) (entity.Book, error) {
	if !field.Valid() {
		return entity.Book{}, fmt.Errorf("find book: unknown field %q", field)
	}
	// field is whitelisted above, so interpolating the column name is safe.
	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s = ? ORDER BY created_at, id LIMIT 1`, sqliteBookColumns, string(field))
	b, err := scanSQLiteBook(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Book{}, book.ErrNotFound
		}
		return entity.Book{}, fmt.Errorf("find book by %s: %w", field, err)
	}
	return b, nil
}

// Search matches title or author; LIKE is case-insensitive for ASCII.
func (s *SQLite) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	pattern := "%" + book.EscapeLike(q) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteBookColumns+` FROM books
		WHERE title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\'
		ORDER BY title, id
		LIMIT ?`, pattern, pattern, book.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()
	return collectSQLiteBooks(rows)
}

func (s *SQLite) PlaceholderBooks(ctx context.Context, placeholder string, limit int) ([]entity.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteBookColumns+` FROM books
		WHERE author = ? AND isbn13 IS NOT NULL AND isbn13 <> ''
		ORDER BY created_at, id
		LIMIT ?`, placeholder, limit)
	if err != nil {
		return nil, fmt.Errorf("list placeholder books: %w", err)
	}
	defer rows.Close()
	return collectSQLiteBooks(rows)
}

func (s *SQLite) UpdateDetails(ctx context.Context, id, title, author string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, updated_at = ? WHERE id = ?`,
		title, author, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("update book details: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return book.ErrNotFound
	}
	return nil
}

func collectSQLiteBooks(rows *sql.Rows) ([]entity.Book, error) {
	out := []entity.Book{}
	for rows.Next() {
		b, err := scanSQLiteBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type sqliteTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *sqliteTx) GetBook(ctx context.Context, id string) (entity.Book, error) {
	b, err := scanSQLiteBook(t.tx.QueryRowContext(ctx, `SELECT `+sqliteBookColumns+` FROM books WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Book{}, book.ErrNotFound
		}
		return entity.Book{}, classifySQLite(err)
	}
	return b, nil
}

func (t *sqliteTx) ActiveLoan(ctx context.Context, userID, bookID string) (entity.Loan, bool, error) {
	l, err := scanSQLiteLoan(t.tx.QueryRowContext(ctx, `SELECT `+sqliteLoanColumns+` FROM loans
		WHERE user_id = ? AND book_id = ? AND status = 'active' LIMIT 1`, userID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Loan{}, false, nil
		}
		return entity.Loan{}, false, classifySQLite(err)
	}
	return l, true, nil
}

func (t *sqliteTx) SetAvailable(ctx context.Context, bookID string, available int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE books SET available_copies = ?, updated_at = ? WHERE id = ?`,
		available, formatTime(t.now()), bookID)
	if err != nil {
		return classifySQLite(err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return book.ErrNotFound
	}
	return nil
}

func (t *sqliteTx) InsertBook(ctx context.Context, b entity.Book) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO books (id, isbn13, isbn, book_id, barcode, title, author, location,
			total_copies, available_copies, registered_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, nullableString(b.ISBN13), nullableString(b.LegacyISBN), nullableString(b.ExternalCode), nullableString(b.Barcode),
		b.Title, b.Author, b.Location, b.TotalCopies, b.AvailableCopies, b.RegisteredBy,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	return classifySQLite(err)
}

func (t *sqliteTx) InsertLoan(ctx context.Context, l entity.Loan) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO loans (id, user_id, book_id, book_title, isbn13, status, checked_out_at, due_at, returned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.BookID, l.BookTitle, nullableString(l.ISBN13), string(l.Status),
		formatTime(l.CheckedOutAt), formatTime(l.DueAt), nullableTime(l.ReturnedAt))
	return classifySQLite(err)
}

func (t *sqliteTx) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE loans SET status = 'returned', returned_at = ? WHERE id = ? AND status = 'active'`,
		formatTime(returnedAt), loanID)
	if err != nil {
		return classifySQLite(err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("loan %s no longer active: %w", loanID, errWriteConflict)
	}
	return nil
}
