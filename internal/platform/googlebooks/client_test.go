package googlebooks

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

func TestSearchISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/v1/volumes", r.URL.Path)
		assert.Equal(t, "isbn:9784003101018", r.URL.Query().Get("q"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"v1","volumeInfo":{
			"title":"こころ","authors":["夏目漱石"],"publisher":"岩波書店","publishedDate":"1989-04"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", RPS: 1000})
	res, err := c.SearchISBN(context.Background(), "9784003101018")
	require.NoError(t, err)

	info, ok := res.First()
	require.True(t, ok)
	assert.Equal(t, "こころ", info.Title)
	assert.Equal(t, []string{"夏目漱石"}, info.Authors)
	assert.Equal(t, "岩波書店", info.Publisher)
	assert.Equal(t, "1989-04", info.PublishedDate)
}

func TestSearchISBN_NoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	res, err := NewClient(Options{BaseURL: srv.URL, RPS: 1000}).SearchISBN(context.Background(), "9780000000002")
	require.NoError(t, err)
	_, ok := res.First()
	assert.False(t, ok)
}

func TestSearchISBN_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RPS: 1000, MaxRetries: 1, BackoffBase: time.Millisecond})
	_, err := c.SearchISBN(context.Background(), "9780000000002")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
