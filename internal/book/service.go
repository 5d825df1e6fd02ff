package book

import (
	"context"
	"strings"

	"librarydesk/internal/entity"
)

// Service provides book-related business logic.
type Service struct {
	repo     Repository
	resolver *Resolver
}

// NewService creates a new book service.
func NewService(repo Repository, resolver *Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// Resolve returns the inventory record identified by code.
func (s *Service) Resolve(ctx context.Context, code string) (entity.Book, error) {
	return s.resolver.Resolve(ctx, code)
}

// Search returns books whose title or author contains q. A blank query
// returns no results rather than the whole catalogue.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []entity.Book{}, nil
	}
	return s.repo.Search(ctx, q, ClampLimit(limit))
}
