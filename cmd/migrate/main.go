package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"librarydesk/internal/config"
	"librarydesk/internal/logging"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	s, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{Level: s.LogLevel, Format: s.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), log, s, *command, *name); err != nil {
		log.Error("migrate failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, s settings, command, name string) error {
	if command == "create" {
		if name == "" {
			return fmt.Errorf("name is required for 'create' command")
		}
		if err := goose.Create(nil, s.Dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		log.Info("migration created", "name", name, "dir", s.Dir)
		return nil
	}

	pool, err := pgxpool.New(ctx, s.DSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	log.Info("running migrations", "command", command, "dir", s.Dir, "dsn", config.RedactDSN(s.DSN))

	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, s.Dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("migrations applied")
	case "down":
		if err := goose.DownContext(ctx, db, s.Dir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		log.Info("migration rolled back")
	case "status":
		if err := goose.StatusContext(ctx, db, s.Dir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	case "version":
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		log.Info("database version", "version", v)
	default:
		return fmt.Errorf("unknown command %q; use up, down, status, version, create", command)
	}
	return nil
}
