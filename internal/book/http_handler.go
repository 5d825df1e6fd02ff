package book

import (
	"errors"
	"net/http"
	"strconv"

	"librarydesk/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Search handles GET /books?q=&limit=
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	limit = ClampLimit(limit)

	books, err := h.service.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		httpx.JSONInternalError(w, r)
		return
	}

	httpx.JSONSuccess(w, r, books, map[string]any{
		"count": len(books),
		"limit": limit,
	})
}

// Resolve handles GET /books/resolve?code=
func (h *HTTPHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	b, err := h.service.Resolve(r.Context(), code)
	switch {
	case err == nil:
		httpx.JSONSuccess(w, r, b, nil)
	case errors.Is(err, ErrEmptyIdentifier):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "code is required",
			[]httpx.ErrorDetail{{Field: "code", Message: "code is required"}})
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "no book matches this code", nil)
	default:
		httpx.JSONInternalError(w, r)
	}
}
