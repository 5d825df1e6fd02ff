package seed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/identifier"
)

func TestBooks(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	books := Books(40, rand.New(rand.NewSource(1)), now)
	require.Len(t, books, 40)

	ids := map[string]bool{}
	for i, b := range books {
		assert.False(t, ids[b.ID], "duplicate id %s", b.ID)
		ids[b.ID] = true
		assert.True(t, b.CopiesConsistent(), "book %s", b.ID)
		assert.Equal(t, now, b.CreatedAt)

		switch i % 4 {
		case 0:
			assert.True(t, identifier.ValidISBN13(b.ISBN13), b.ISBN13)
		case 1:
			assert.True(t, identifier.ValidISBN13(b.LegacyISBN), b.LegacyISBN)
			assert.Empty(t, b.ISBN13)
		case 2:
			assert.NotEmpty(t, b.ExternalCode)
		case 3:
			assert.NotEmpty(t, b.Barcode)
		}
	}
}

func TestISBN13_NormalizesToItself(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		isbn := ISBN13(rng)
		got, ok := identifier.Normalize(isbn)
		require.True(t, ok, isbn)
		assert.Equal(t, isbn, got)
	}
}
