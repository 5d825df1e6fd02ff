package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/config"
	"librarydesk/internal/enrich"
	"librarydesk/internal/logging"
	"librarydesk/internal/metadata"
	"librarydesk/internal/scanner"
	"librarydesk/internal/store"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireServer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := openDB(ctx, cfg.DatabaseDSN, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	bookRepo := book.NewPostgresRepo(pool, cfg.DBTimeout)
	resolver := book.NewResolver(bookRepo, log.With("component", "resolver"))
	metaSvc := metadata.NewFromConfig(cfg, log.With("component", "metadata"))
	circSvc := circulation.NewService(
		store.NewPostgres(pool, cfg.DBTimeout, log.With("component", "store")),
		resolver, metaSvc, log.With("component", "circulation"),
		circulation.Config{LoanPeriod: cfg.LoanPeriod},
	)
	enrichSvc := enrich.NewService(
		enrich.NewPostgresBooks(pool, cfg.DBTimeout),
		enrich.NewPostgresRepo(pool, cfg.DBTimeout),
		metaSvc, log.With("component", "enrich"), enrich.Config{},
	)

	router := newRouter(ctx, cfg, log, handlers{
		books:  book.NewHTTPHandler(book.NewService(bookRepo, resolver)),
		circ:   circulation.NewHTTPHandler(circSvc, scanner.NewDebouncer(cfg.ScanDebounce, nil)),
		meta:   metadata.NewHTTPHandler(metaSvc),
		enrich: enrich.NewHTTPHandler(enrichSvc, cfg.InternalSecret),
		ready:  pool.Ping,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDB(ctx context.Context, dsn string, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", config.RedactDSN(dsn), err)
	}
	log.Info("database connection OK")
	return pool, nil
}
