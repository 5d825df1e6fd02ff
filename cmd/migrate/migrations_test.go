package main

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
}

func TestCollectMigrations_CirculationSchemaInOrder(t *testing.T) {
	migrations, err := goose.CollectMigrations(migrationsDir(t), 0, goose.MaxVersion)
	require.NoError(t, err)

	var versions []int64
	var sources []string
	for _, m := range migrations {
		versions = append(versions, m.Version)
		sources = append(sources, filepath.Base(m.Source))
	}
	assert.Equal(t, []int64{1, 2, 3}, versions)
	assert.Equal(t, []string{"00001_books.sql", "00002_loans.sql", "00003_enrich_runs.sql"}, sources)
}
