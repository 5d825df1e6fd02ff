package circulation

import (
	"context"
	"time"

	"librarydesk/internal/entity"
	"librarydesk/internal/metadata"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// Tx is the view of the store inside one transaction. Reads see the
// transaction's own writes.
type Tx interface {
	// GetBook returns book.ErrNotFound when no record has this primary key.
	GetBook(ctx context.Context, id string) (entity.Book, error)
	// ActiveLoan reports the user's active loan for the book, if any.
	ActiveLoan(ctx context.Context, userID, bookID string) (entity.Loan, bool, error)
	SetAvailable(ctx context.Context, bookID string, available int) error
	// InsertBook returns ErrAlreadyRegistered when the ID is taken.
	InsertBook(ctx context.Context, b entity.Book) error
	InsertLoan(ctx context.Context, l entity.Loan) error
	CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error
}

// Store is the shared transactional record store.
type Store interface {
	// RunInTx runs fn in a transaction and commits when fn returns nil. On a
	// write conflict the whole of fn is retried; when retries are exhausted
	// the error wraps ErrConflict.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ActiveLoans(ctx context.Context, userID string) ([]entity.Loan, error)
}

// Resolver finds the inventory record for a scanned or typed identifier.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (entity.Book, error)
}

// MetadataFetcher is a best-effort bibliographic lookup.
type MetadataFetcher interface {
	Fetch(ctx context.Context, isbn13 string) metadata.Metadata
}
