package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/config"
	"librarydesk/internal/entity"
	"librarydesk/internal/logging"
	"librarydesk/internal/seed"
)

var bookColumns = []string{
	"id", "isbn13", "isbn", "book_id", "barcode", "title", "author", "location",
	"total_copies", "available_copies", "registered_by", "created_at", "updated_at",
}

func main() {
	var (
		count   = flag.Int("count", 200, "number of books to generate")
		rngSeed = flag.Int64("seed", 1, "random seed; the same seed yields the same catalogue")
	)
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), log, cfg.DatabaseDSN, *count, *rngSeed); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, dsn string, count int, rngSeed int64) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	books := seed.Books(count, rand.New(rand.NewSource(rngSeed)), time.Now().UTC())
	log.Info("inserting books", "count", len(books), "dsn", config.RedactDSN(dsn))

	n, err := pool.CopyFrom(ctx, pgx.Identifier{"books"}, bookColumns, pgx.CopyFromSlice(len(books), func(i int) ([]any, error) {
		return bookRow(books[i]), nil
	}))
	if err != nil {
		return fmt.Errorf("copy books: %w", err)
	}

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	log.Info("seed complete", "inserted", n, "total", total)
	return nil
}

func bookRow(b entity.Book) []any {
	return []any{
		b.ID, nullIfEmpty(b.ISBN13), nullIfEmpty(b.LegacyISBN), nullIfEmpty(b.ExternalCode), nullIfEmpty(b.Barcode),
		b.Title, b.Author, b.Location, b.TotalCopies, b.AvailableCopies, b.RegisteredBy, b.CreatedAt, b.UpdatedAt,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
