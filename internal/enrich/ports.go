package enrich

import (
	"context"

	"librarydesk/internal/entity"
	"librarydesk/internal/metadata"
)

// Repository persists run records.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
	LinkBook(ctx context.Context, runID, bookID string) error
}

// Books is the slice of the inventory the job reads and rewrites. It never
// touches copy counts.
type Books interface {
	PlaceholderBooks(ctx context.Context, placeholder string, limit int) ([]entity.Book, error)
	UpdateDetails(ctx context.Context, id, title, author string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, isbn13 string) metadata.Metadata
}
