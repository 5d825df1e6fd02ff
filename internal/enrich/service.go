package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"librarydesk/internal/circulation"
	"librarydesk/internal/entity"
)

const DefaultBatchSize = 50

type Config struct {
	BatchSize   int
	Placeholder string
	Now         func() time.Time
}

type Service struct {
	books   Books
	runs    Repository
	fetcher Fetcher
	log     *slog.Logger
	cfg     Config
}

func NewService(books Books, runs Repository, fetcher Fetcher, log *slog.Logger, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = circulation.UnknownAuthor
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{books: books, runs: runs, fetcher: fetcher, log: log, cfg: cfg}
}

// Run processes one batch of placeholder books and records the pass. A book
// whose lookup yields no author is skipped and picked up again next time.
func (s *Service) Run(ctx context.Context) (run *Run, err error) {
	run = &Run{
		Status:    StatusRunning,
		BatchSize: s.cfg.BatchSize,
		StartedAt: s.cfg.Now(),
	}
	runID, err := s.runs.CreateRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID
	log := s.log.With("run_id", run.ID)

	defer func() {
		finished := s.cfg.Now()
		run.FinishedAt = &finished
		if err != nil && run.Error == "" {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		if updateErr := s.runs.UpdateRun(ctx, run); updateErr != nil {
			log.Error("failed to update enrich run", "error", updateErr)
		}
		log.Info("enrich run finished", "status", run.Status,
			"scanned", run.Scanned, "enriched", run.Enriched, "skipped", run.Skipped, "failed", run.Failed)
	}()

	books, err := s.books.PlaceholderBooks(ctx, s.cfg.Placeholder, s.cfg.BatchSize)
	if err != nil {
		return run, fmt.Errorf("list placeholder books: %w", err)
	}

	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run.Scanned++

		m := s.fetcher.Fetch(ctx, b.ISBN13)
		author := m.AuthorOr("")
		if author == "" {
			run.Skipped++
			log.Debug("no metadata for book", "book_id", b.ID, "isbn13", b.ISBN13)
			continue
		}

		title := detailTitle(b, m.Title)
		if err := s.books.UpdateDetails(ctx, b.ID, title, author); err != nil {
			run.Failed++
			log.Warn("failed to update book details", "book_id", b.ID, "error", err)
			continue
		}
		run.Enriched++
		if err := s.runs.LinkBook(ctx, run.ID, b.ID); err != nil {
			log.Warn("failed to link book to run", "book_id", b.ID, "error", err)
		}
	}
	return run, nil
}

// detailTitle keeps a title typed at the desk unless it is blank or just
// repeats the code.
func detailTitle(b entity.Book, fetched string) string {
	current := strings.TrimSpace(b.Title)
	if fetched != "" && (current == "" || current == b.ID) {
		return fetched
	}
	return b.Title
}
