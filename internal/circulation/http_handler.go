package circulation

import (
	"context"
	"errors"
	"net/http"

	"librarydesk/internal/book"
	"librarydesk/internal/entity"
	"librarydesk/internal/httpx"
	"librarydesk/internal/identifier"
	"librarydesk/internal/scanner"
)

// Processor is the part of Service the HTTP layer drives.
type Processor interface {
	ProcessScan(ctx context.Context, user entity.User, raw string) (Outcome, error)
	ProcessManual(ctx context.Context, user entity.User, code, title string) (Outcome, error)
	ActiveLoans(ctx context.Context, userID string) ([]LoanView, error)
}

type HTTPHandler struct {
	svc       Processor
	debouncer *scanner.Debouncer
}

// NewHTTPHandler creates the circulation endpoints. Repeated scans of the
// same identifier by one user within the debouncer's window are ignored.
func NewHTTPHandler(svc Processor, debouncer *scanner.Debouncer) *HTTPHandler {
	return &HTTPHandler{svc: svc, debouncer: debouncer}
}

type scanRequest struct {
	Code string `json:"code" validate:"notblank,max=256"`
}

type manualRequest struct {
	Code  string `json:"code" validate:"notblank,max=256"`
	Title string `json:"title" validate:"max=500"`
}

type candidatesRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

type processResponse struct {
	Result  Result  `json:"result"`
	Outcome Outcome `json:"outcome"`
}

// Scan handles POST /circulation/scan
func (h *HTTPHandler) Scan(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.UserFrom(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req scanRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	key := user.ID + "|" + identifier.Key(req.Code)
	if !h.debouncer.Allow(key) {
		out := Outcome{Action: ActionDuplicate, Code: identifier.Code(req.Code), User: user}
		httpx.JSONSuccess(w, r, processResponse{Result: Present(out, nil), Outcome: out}, nil)
		return
	}

	out, err := h.svc.ProcessScan(r.Context(), user, req.Code)
	if err != nil {
		// Failed scans do not count toward the debounce window.
		h.debouncer.Reset(key)
	}
	h.respond(w, r, out, err)
}

// Manual handles POST /circulation/manual
func (h *HTTPHandler) Manual(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.UserFrom(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req manualRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	out, err := h.svc.ProcessManual(r.Context(), user, req.Code, req.Title)
	h.respond(w, r, out, err)
}

// Candidates handles POST /circulation/candidates
func (h *HTTPHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	candidates := identifier.ExtractCandidates(req.Text)
	httpx.JSONSuccess(w, r, candidates, map[string]any{"count": len(candidates)})
}

// MyLoans handles GET /me/loans
func (h *HTTPHandler) MyLoans(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	loans, err := h.svc.ActiveLoans(r.Context(), userID)
	if err != nil {
		httpx.JSONInternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, loans, map[string]any{"count": len(loans)})
}

func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, out Outcome, err error) {
	res := Present(out, err)
	if err == nil {
		httpx.JSONSuccess(w, r, processResponse{Result: res, Outcome: out}, nil)
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, book.ErrEmptyIdentifier):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, ErrNoStock):
		status, code = http.StatusConflict, "NO_STOCK"
	case errors.Is(err, ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrInvariant):
		status, code = http.StatusInternalServerError, "INVARIANT_VIOLATION"
	}
	httpx.JSONError(w, r, status, code, res.Body, nil)
}
