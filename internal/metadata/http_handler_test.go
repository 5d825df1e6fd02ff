package metadata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHandler_Get(t *testing.T) {
	src := &stubSource{name: "a", meta: Metadata{ISBN13: kokoro, Title: "Kokoro"}}
	h := NewHTTPHandler(NewService(nil, time.Second, src))

	t.Run("isbn-10 path is canonicalised", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metadata/4003101014", nil)
		r.SetPathValue("isbn", "4003101014")
		w := httptest.NewRecorder()
		h.Get(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data Metadata       `json:"data"`
			Meta map[string]any `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Kokoro", resp.Data.Title)
		assert.Equal(t, true, resp.Meta["found"])
	})

	t.Run("invalid isbn", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metadata/hello", nil)
		r.SetPathValue("isbn", "hello")
		w := httptest.NewRecorder()
		h.Get(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
