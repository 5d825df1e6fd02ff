package metadata

import (
	"log/slog"

	"librarydesk/internal/config"
	"librarydesk/internal/platform/googlebooks"
	"librarydesk/internal/platform/openlibrary"
)

const userAgent = "librarydesk/1.0 (+circulation desk)"

// NewFromConfig builds the default source chain: Open Library first, then
// Google Books.
func NewFromConfig(cfg config.Config, log *slog.Logger) *Service {
	ol := openlibrary.NewClient(openlibrary.Options{
		BaseURL:    cfg.OpenLibraryBaseURL,
		UserAgent:  userAgent,
		RPS:        cfg.MetadataRPS,
		MaxRetries: 2,
	})
	gb := googlebooks.NewClient(googlebooks.Options{
		BaseURL:    cfg.GoogleBooksBaseURL,
		APIKey:     cfg.GoogleBooksAPIKey,
		RPS:        cfg.MetadataRPS,
		MaxRetries: 2,
	})
	return NewService(log, cfg.MetadataTimeout, NewOpenLibrary(ol), NewGoogleBooks(gb))
}
