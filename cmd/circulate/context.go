package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/config"
	"librarydesk/internal/enrich"
	"librarydesk/internal/entity"
	"librarydesk/internal/logging"
	"librarydesk/internal/metadata"
	"librarydesk/internal/profile"
	"librarydesk/internal/seed"
	"librarydesk/internal/store"
)

var errOffline = errors.New("metadata lookups are disabled (--offline)")

type commandContext struct {
	profilePath string
	userID      string
	userName    string
	role        string
	memory      bool
	sqlitePath  string
	seedCount   int
	offline     bool

	configOnce sync.Once
	config     config.Config
	configErr  error

	profileOnce sync.Once
	profile     profile.Profile
	profileErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		config.LoadDotEnv()
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureProfile() (profile.Profile, error) {
	c.profileOnce.Do(func() {
		c.profile, _, _, c.profileErr = profile.Load(c.profilePath)
	})
	return c.profile, c.profileErr
}

// applyDefaults fills every persistent flag the user did not set, from the
// environment and the operator profile.
func (c *commandContext) applyDefaults(changed func(name string) bool) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	prof, err := c.ensureProfile()
	if err != nil {
		return err
	}

	if !changed("user") {
		c.userID = firstNonEmpty(os.Getenv("CIRCULATE_USER"), prof.User.ID, os.Getenv("USER"), "desk")
	}
	if !changed("name") {
		c.userName = prof.User.Name
	}
	if !changed("role") {
		c.role = prof.User.Role
	}
	if !changed("sqlite") {
		c.sqlitePath = firstNonEmpty(cfg.SQLitePath, prof.Desk.SQLitePath)
	}
	if !changed("offline") {
		c.offline = prof.Desk.Offline
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (c *commandContext) user() entity.User {
	return entity.User{ID: c.userID, Name: c.userName, Role: c.role}
}

func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: w})
}

// scanDebounce prefers the profile's window over SCAN_DEBOUNCE.
func (c *commandContext) scanDebounce() (time.Duration, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return 0, err
	}
	prof, err := c.ensureProfile()
	if err != nil {
		return 0, err
	}
	if d, ok := prof.ScanDebounce(); ok {
		return d, nil
	}
	return cfg.ScanDebounce, nil
}

// desk is the set of services one command invocation works with.
type desk struct {
	circ    *circulation.Service
	books   *book.Service
	meta    *metadata.Service
	cfg     config.Config
	log     *slog.Logger
	backend string

	enrichBooks enrich.Books
	runs        enrich.Repository
}

func (d *desk) metadataService() (*metadata.Service, error) {
	if d.meta == nil {
		return nil, errOffline
	}
	return d.meta, nil
}

// backing is one opened store with everything the commands need from it.
type backing struct {
	name    string
	st      circulation.Store
	repo    book.Repository
	books   enrich.Books
	runs    enrich.Repository
	release func()
}

// withDesk opens the selected store, builds the services, runs fn and
// releases the store.
func (c *commandContext) withDesk(ctx context.Context, logOut io.Writer, fn func(*desk) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := c.logger(logOut)
	if err != nil {
		return err
	}

	b, err := c.openBacking(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.release()

	d := &desk{cfg: cfg, log: log, backend: b.name, enrichBooks: b.books, runs: b.runs}
	var fetcher circulation.MetadataFetcher
	if !c.offline {
		d.meta = metadata.NewFromConfig(cfg, log)
		fetcher = d.meta
	}
	resolver := book.NewResolver(b.repo, log)
	d.books = book.NewService(b.repo, resolver)
	d.circ = circulation.NewService(b.st, resolver, fetcher, log, circulation.Config{LoanPeriod: cfg.LoanPeriod})
	return fn(d)
}

func (c *commandContext) seedBooks() []entity.Book {
	return seed.Books(c.seedCount, rand.New(rand.NewSource(1)), time.Now().UTC())
}

func (c *commandContext) openBacking(ctx context.Context, cfg config.Config, log *slog.Logger) (*backing, error) {
	switch {
	case c.memory:
		mem := store.NewMemory()
		for _, b := range c.seedBooks() {
			mem.PutBook(b)
		}
		return &backing{name: "memory", st: mem, repo: mem, books: mem, runs: enrich.NewMemoryRepo(), release: func() {}}, nil

	case c.sqlitePath != "":
		db, err := store.OpenSQLite(ctx, c.sqlitePath, log)
		if err != nil {
			return nil, err
		}
		if err := c.seedEmpty(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		release := func() {
			if err := db.Close(); err != nil {
				log.Warn("closing desk database", "path", db.Path(), "error", err)
			}
		}
		return &backing{name: "sqlite", st: db, repo: db, books: db, runs: enrich.NewSQLiteRepo(db.DB()), release: release}, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &backing{
			name:    "postgres",
			st:      store.NewPostgres(pool, cfg.DBTimeout, log),
			repo:    book.NewPostgresRepo(pool, cfg.DBTimeout),
			books:   enrich.NewPostgresBooks(pool, cfg.DBTimeout),
			runs:    enrich.NewPostgresRepo(pool, cfg.DBTimeout),
			release: pool.Close,
		}, nil
	}
}

// seedEmpty fills a freshly created desk database with demo records.
func (c *commandContext) seedEmpty(ctx context.Context, db *store.SQLite) error {
	if c.seedCount <= 0 {
		return nil
	}
	n, err := db.CountBooks(ctx)
	if err != nil || n > 0 {
		return err
	}
	return db.InsertBooks(ctx, c.seedBooks())
}
