package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"librarydesk/internal/entity"
	"librarydesk/internal/identifier"
)

type step struct {
	name  string
	field Field
	isbn  bool
}

// Order is significant. Identifier spaces can overlap, so an opaque code may
// match an unrelated record's primary key before its barcode; the first hit
// wins.
var cascade = []step{
	{name: "isbn13", field: FieldISBN13, isbn: true},
	{name: "legacy-isbn", field: FieldLegacyISBN, isbn: true},
	{name: "id", field: FieldID},
	{name: "external-code", field: FieldExternalCode},
	{name: "barcode", field: FieldBarcode},
}

// Resolver maps a scanned identifier or typed code onto an inventory record.
type Resolver struct {
	repo Repository
	log  *slog.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(repo Repository, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{repo: repo, log: log}
}

// Resolve runs the lookup cascade and returns the first match. ISBN steps are
// skipped when no canonical ISBN-13 can be derived from raw. Errors other than
// ErrNotFound abort the cascade.
func (r *Resolver) Resolve(ctx context.Context, raw string) (entity.Book, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.Book{}, ErrEmptyIdentifier
	}
	isbn, hasISBN := identifier.Normalize(raw)
	code := identifier.Code(raw)

	for _, s := range cascade {
		value := code
		if s.isbn {
			if !hasISBN {
				continue
			}
			value = isbn
		}
		if value == "" {
			continue
		}

		b, err := r.repo.FindBy(ctx, s.field, value)
		if err == nil {
			r.log.Debug("book resolved", "strategy", s.name, "value", value, "book_id", b.ID)
			return b, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return entity.Book{}, fmt.Errorf("resolve by %s: %w", s.name, err)
		}
	}

	r.log.Debug("book not resolved", "code", code, "isbn13", isbn)
	return entity.Book{}, ErrNotFound
}
