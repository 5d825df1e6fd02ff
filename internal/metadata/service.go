package metadata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"librarydesk/internal/identifier"
)

// Service asks each source in order and returns the first non-empty answer.
type Service struct {
	sources []Source
	timeout time.Duration
	log     *slog.Logger
}

// NewService creates a Service. timeout bounds each source separately,
// retries included.
func NewService(log *slog.Logger, timeout time.Duration, sources ...Source) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{sources: sources, timeout: timeout, log: log}
}

// Fetch never fails. When every source errors or knows nothing the result
// carries only the ISBN.
func (s *Service) Fetch(ctx context.Context, isbn13 string) Metadata {
	empty := Metadata{ISBN13: isbn13}
	if canonical, ok := identifier.Normalize(isbn13); !ok || canonical != isbn13 {
		return empty
	}

	for _, src := range s.sources {
		m, err := s.lookup(ctx, src, isbn13)
		if err == nil {
			return m
		}
		if ctx.Err() != nil {
			return empty
		}
		level := slog.LevelWarn
		if errors.Is(err, ErrNoResult) {
			level = slog.LevelDebug
		}
		s.log.Log(ctx, level, "metadata lookup failed", "source", src.Name(), "isbn13", isbn13, "error", err)
	}
	return empty
}

func (s *Service) lookup(ctx context.Context, src Source, isbn13 string) (Metadata, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return src.Lookup(ctx, isbn13)
}
