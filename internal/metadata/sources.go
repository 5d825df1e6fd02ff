package metadata

import (
	"context"
	"errors"
	"fmt"

	"librarydesk/internal/platform/googlebooks"
	"librarydesk/internal/platform/openlibrary"
)

type OpenLibraryClient interface {
	GetEdition(ctx context.Context, isbn string) (*openlibrary.Edition, error)
	GetAuthor(ctx context.Context, authorKey string) (*openlibrary.AuthorDetails, error)
}

// OpenLibrary adapts the Open Library edition endpoint.
type OpenLibrary struct {
	client OpenLibraryClient
	// Author records are fetched one by one; editions rarely list more.
	maxAuthorLookups int
}

func NewOpenLibrary(client OpenLibraryClient) *OpenLibrary {
	return &OpenLibrary{client: client, maxAuthorLookups: 3}
}

func (s *OpenLibrary) Name() string { return "openlibrary" }

func (s *OpenLibrary) Lookup(ctx context.Context, isbn13 string) (Metadata, error) {
	ed, err := s.client.GetEdition(ctx, isbn13)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return Metadata{}, ErrNoResult
		}
		return Metadata{}, fmt.Errorf("openlibrary edition: %w", err)
	}

	names := make([]string, 0, len(ed.Authors))
	lookups := 0
	for _, a := range ed.Authors {
		switch {
		case a.Name != "":
			names = append(names, a.Name)
		case a.Key != "" && lookups < s.maxAuthorLookups:
			lookups++
			details, err := s.client.GetAuthor(ctx, a.Key)
			if err != nil || details.Name == "" {
				names = append(names, a.Key)
				continue
			}
			names = append(names, details.Name)
		case a.Key != "":
			names = append(names, a.Key)
		}
	}

	m := Metadata{
		ISBN13:    isbn13,
		Title:     ed.Title,
		Authors:   joinNonEmpty(names),
		Publisher: joinNonEmpty(ed.Publishers),
		Published: ed.PublishDate,
		Source:    s.Name(),
	}
	if m.Empty() {
		return Metadata{}, ErrNoResult
	}
	return m, nil
}

type GoogleBooksClient interface {
	SearchISBN(ctx context.Context, isbn string) (*googlebooks.VolumesResponse, error)
}

// GoogleBooks adapts the Google Books volumes search.
type GoogleBooks struct {
	client GoogleBooksClient
}

func NewGoogleBooks(client GoogleBooksClient) *GoogleBooks {
	return &GoogleBooks{client: client}
}

func (s *GoogleBooks) Name() string { return "googlebooks" }

func (s *GoogleBooks) Lookup(ctx context.Context, isbn13 string) (Metadata, error) {
	res, err := s.client.SearchISBN(ctx, isbn13)
	if err != nil {
		return Metadata{}, fmt.Errorf("googlebooks volumes: %w", err)
	}
	info, ok := res.First()
	if !ok {
		return Metadata{}, ErrNoResult
	}

	m := Metadata{
		ISBN13:    isbn13,
		Title:     info.Title,
		Authors:   joinNonEmpty(info.Authors),
		Publisher: info.Publisher,
		Published: info.PublishedDate,
		Source:    s.Name(),
	}
	if m.Empty() {
		return Metadata{}, ErrNoResult
	}
	return m, nil
}
