package enrich

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepo records runs in a desk database opened by store.OpenSQLite.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO enrich_runs (id, started_at, status, batch_size) VALUES (?, ?, ?, ?)`,
		id, run.StartedAt.UTC().Format(sqliteTimeLayout), string(run.Status), run.BatchSize)
	if err != nil {
		return "", fmt.Errorf("insert enrich run: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepo) UpdateRun(ctx context.Context, run *Run) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(sqliteTimeLayout)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE enrich_runs SET
			finished_at = ?, status = ?, scanned = ?, enriched = ?, skipped = ?, failed = ?, error = ?
		WHERE id = ?`,
		finished, string(run.Status), run.Scanned, run.Enriched, run.Skipped, run.Failed, run.Error, run.ID)
	return err
}

func (r *SQLiteRepo) LinkBook(ctx context.Context, runID, bookID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO enrich_run_books (run_id, book_id) VALUES (?, ?)`, runID, bookID)
	return err
}

// LinkedBooks lists the books a run enriched.
func (r *SQLiteRepo) LinkedBooks(ctx context.Context, runID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id FROM enrich_run_books WHERE run_id = ? ORDER BY book_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run books: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LastRun returns the most recently started run, or nil when none exists.
func (r *SQLiteRepo) LastRun(ctx context.Context) (*Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, batch_size, scanned, enriched, skipped, failed, error
		FROM enrich_runs ORDER BY started_at DESC LIMIT 1`).Scan(
		&run.ID, &started, &finished, &status, &run.BatchSize,
		&run.Scanned, &run.Enriched, &run.Skipped, &run.Failed, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last run: %w", err)
	}
	run.Status = Status(status)
	if run.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		at, err := time.Parse(sqliteTimeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &at
	}
	return &run, nil
}
