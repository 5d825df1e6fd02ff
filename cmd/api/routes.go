package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/config"
	"librarydesk/internal/enrich"
	"librarydesk/internal/httpx"
	"librarydesk/internal/metadata"
)

const maxRequestBody = 1 << 20

type handlers struct {
	books  *book.HTTPHandler
	circ   *circulation.HTTPHandler
	meta   *metadata.HTTPHandler
	enrich *enrich.HTTPHandler
	// ready reports whether the backing store is reachable.
	ready func(ctx context.Context) error
}

// newRouter registers every route and wraps the mux in the shared
// middleware stack. ctx bounds the rate limiter's janitor goroutine.
func newRouter(ctx context.Context, cfg config.Config, log *slog.Logger, h handlers) http.Handler {
	mux := http.NewServeMux()
	auth := httpx.AuthMiddleware(cfg.JWTSecret)
	protected := func(f http.HandlerFunc) http.Handler { return auth(f) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.ready(pingCtx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /books", h.books.Search)
	mux.HandleFunc("GET /books/resolve", h.books.Resolve)
	mux.HandleFunc("GET /metadata/{isbn}", h.meta.Get)

	mux.Handle("POST /circulation/scan", protected(h.circ.Scan))
	mux.Handle("POST /circulation/manual", protected(h.circ.Manual))
	mux.Handle("POST /circulation/candidates", protected(h.circ.Candidates))
	mux.Handle("GET /me/loans", protected(h.circ.MyLoans))

	mux.HandleFunc("POST /internal/jobs/enrich", h.enrich.Enrich)

	limiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	return httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
		httpx.RequestSizeLimitMiddleware(maxRequestBody),
		limiter.Middleware,
	)
}
