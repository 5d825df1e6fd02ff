package metadata

import (
	"net/http"

	"librarydesk/internal/httpx"
	"librarydesk/internal/identifier"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Get handles GET /metadata/{isbn}. Any ISBN-10 or ISBN-13 spelling is
// accepted; the response is keyed by the canonical ISBN-13.
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	isbn, ok := identifier.Normalize(r.PathValue("isbn"))
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid ISBN",
			[]httpx.ErrorDetail{{Field: "isbn", Message: "isbn must be a valid ISBN-10 or ISBN-13"}})
		return
	}

	m := h.service.Fetch(r.Context(), isbn)
	httpx.JSONSuccess(w, r, m, map[string]any{"found": !m.Empty()})
}
