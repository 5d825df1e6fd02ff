package book

import (
	"context"

	"librarydesk/internal/entity"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// FindBy returns the first book whose field equals value, or ErrNotFound.
	FindBy(ctx context.Context, field Field, value string) (entity.Book, error)
	// Search matches q as a case-insensitive substring of title or author.
	Search(ctx context.Context, q string, limit int) ([]entity.Book, error)
}
