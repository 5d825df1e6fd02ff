package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/config"
)

const kokoro = "9784003101018"

type stubSource struct {
	name  string
	meta  Metadata
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Lookup(ctx context.Context, isbn13 string) (Metadata, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Metadata{}, ctx.Err()
		}
	}
	return s.meta, s.err
}

func TestService_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("primary answers", func(t *testing.T) {
		primary := &stubSource{name: "a", meta: Metadata{ISBN13: kokoro, Title: "Kokoro"}}
		secondary := &stubSource{name: "b"}

		m := NewService(nil, time.Second, primary, secondary).Fetch(ctx, kokoro)
		assert.Equal(t, "Kokoro", m.Title)
		assert.Equal(t, int32(0), secondary.calls.Load())
	})

	t.Run("falls back when primary errors", func(t *testing.T) {
		primary := &stubSource{name: "a", err: errors.New("boom")}
		secondary := &stubSource{name: "b", meta: Metadata{ISBN13: kokoro, Title: "こころ"}}

		m := NewService(nil, time.Second, primary, secondary).Fetch(ctx, kokoro)
		assert.Equal(t, "こころ", m.Title)
	})

	t.Run("falls back when primary is slow", func(t *testing.T) {
		primary := &stubSource{name: "a", delay: time.Second, meta: Metadata{Title: "late"}}
		secondary := &stubSource{name: "b", meta: Metadata{ISBN13: kokoro, Title: "fast"}}

		m := NewService(nil, 20*time.Millisecond, primary, secondary).Fetch(ctx, kokoro)
		assert.Equal(t, "fast", m.Title)
	})

	t.Run("both fail", func(t *testing.T) {
		primary := &stubSource{name: "a", err: ErrNoResult}
		secondary := &stubSource{name: "b", err: errors.New("down")}

		m := NewService(nil, time.Second, primary, secondary).Fetch(ctx, kokoro)
		assert.Equal(t, Metadata{ISBN13: kokoro}, m)
		assert.True(t, m.Empty())
	})

	t.Run("non canonical isbn is not looked up", func(t *testing.T) {
		primary := &stubSource{name: "a", meta: Metadata{Title: "x"}}

		m := NewService(nil, time.Second, primary).Fetch(ctx, "4003101014")
		assert.True(t, m.Empty())
		assert.Equal(t, int32(0), primary.calls.Load())
	})
}

func TestMetadata_AuthorOr(t *testing.T) {
	assert.Equal(t, "unknown", Metadata{}.AuthorOr("unknown"))
	assert.Equal(t, "Soseki", Metadata{Authors: "Soseki"}.AuthorOr("unknown"))
}

func TestService_WithRealClients(t *testing.T) {
	var olCalls, gbCalls atomic.Int32
	ol := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		olCalls.Add(1)
		switch r.URL.Path {
		case "/isbn/" + kokoro + ".json":
			_, _ = w.Write([]byte(`{"title":"Kokoro","authors":[{"key":"/authors/OL1A"}],"publishers":["Iwanami Shoten"],"publish_date":"1927"}`))
		case "/authors/OL1A.json":
			_, _ = w.Write([]byte(`{"name":"Natsume Soseki"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ol.Close()
	gb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gbCalls.Add(1)
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"volumeInfo":{"title":"Fallback","authors":["A","B"]}}]}`))
	}))
	defer gb.Close()

	svc := NewFromConfig(config.Config{
		OpenLibraryBaseURL: ol.URL,
		GoogleBooksBaseURL: gb.URL,
		MetadataRPS:        1000,
		MetadataTimeout:    time.Second,
	}, nil)

	m := svc.Fetch(context.Background(), kokoro)
	assert.Equal(t, Metadata{
		ISBN13:    kokoro,
		Title:     "Kokoro",
		Authors:   "Natsume Soseki",
		Publisher: "Iwanami Shoten",
		Published: "1927",
		Source:    "openlibrary",
	}, m)
	assert.Equal(t, int32(0), gbCalls.Load())

	m = svc.Fetch(context.Background(), "9780306406157")
	require.Equal(t, "googlebooks", m.Source)
	assert.Equal(t, "Fallback", m.Title)
	assert.Equal(t, "A, B", m.Authors)
}
