package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, retries int) *Client {
	return NewClient(Options{
		BaseURL:     srv.URL,
		UserAgent:   "librarydesk-test",
		RPS:         1000,
		MaxRetries:  retries,
		BackoffBase: time.Millisecond,
	})
}

func TestGetEdition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/isbn/9784003101018.json", r.URL.Path)
		assert.Equal(t, "librarydesk-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{
			"title": "Kokoro",
			"authors": [{"key": "/authors/OL1A"}],
			"publishers": ["Iwanami Shoten", {"name": "Iwanami"}],
			"publish_date": "1927"
		}`))
	}))
	defer srv.Close()

	ed, err := newTestClient(srv, 0).GetEdition(context.Background(), "9784003101018")
	require.NoError(t, err)
	assert.Equal(t, "Kokoro", ed.Title)
	assert.Equal(t, []AuthorRef{{Key: "/authors/OL1A"}}, ed.Authors)
	assert.Equal(t, Names{"Iwanami Shoten", "Iwanami"}, ed.Publishers)
	assert.Equal(t, "1927", ed.PublishDate)
}

func TestGetAuthor_TrimsKeyPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authors/OL1A.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"name": "Natsume Soseki"}`))
	}))
	defer srv.Close()

	a, err := newTestClient(srv, 0).GetAuthor(context.Background(), "/authors/OL1A")
	require.NoError(t, err)
	assert.Equal(t, "Natsume Soseki", a.Name)
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).GetEdition(context.Background(), "9780000000002")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"title": "Third time"}`))
	}))
	defer srv.Close()

	ed, err := newTestClient(srv, 3).GetEdition(context.Background(), "9780000000002")
	require.NoError(t, err)
	assert.Equal(t, "Third time", ed.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).GetEdition(context.Background(), "9780000000002")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).GetEdition(context.Background(), "bad")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
