package enrich

import (
	"context"
	"crypto/subtle"
	"net/http"

	"librarydesk/internal/httpx"
)

// Runner is the part of Service the handler triggers.
type Runner interface {
	Run(ctx context.Context) (*Run, error)
}

type HTTPHandler struct {
	svc    Runner
	secret string
}

func NewHTTPHandler(svc Runner, secret string) *HTTPHandler {
	return &HTTPHandler{svc: svc, secret: secret}
}

// Enrich handles POST /internal/jobs/enrich. The caller must present the
// internal secret in X-Internal-Secret.
func (h *HTTPHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	given := r.Header.Get("X-Internal-Secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal secret", nil)
		return
	}

	run, err := h.svc.Run(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "ENRICH_FAILED", "enrichment run failed", nil)
		return
	}
	httpx.JSONSuccess(w, r, run, nil)
}
