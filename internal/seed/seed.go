// Package seed generates a demo inventory whose records use every
// identifier shape the resolver understands.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"librarydesk/internal/entity"
	"librarydesk/internal/identifier"
)

var (
	words = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"River", "Garden", "Harbor", "Science", "Nature", "Machines", "History", "Future",
		"Lanterns", "Mountains", "Letters", "Winter", "Wisdom", "Islands", "Bridges",
	}
	authors = []string{
		"Natsume Soseki", "Higuchi Ichiyo", "Mori Ogai", "Miyazawa Kenji",
		"Akutagawa Ryunosuke", "Dazai Osamu", "Kawabata Yasunari", "Yosano Akiko",
	}
	shelves = []string{"A-1", "A-2", "B-1", "B-3", "C-2", "Reference"}
)

// Books returns n records. Record i is keyed by an ISBN-13, a legacy ISBN
// field, an external book code or a barcode, in rotation.
func Books(n int, rng *rand.Rand, now time.Time) []entity.Book {
	out := make([]entity.Book, 0, n)
	for i := 0; i < n; i++ {
		total := 1 + rng.Intn(4)
		b := entity.Book{
			ID:              fmt.Sprintf("SEED-%05d", i+1),
			Title:           fmt.Sprintf("%s of %s", words[rng.Intn(len(words))], words[rng.Intn(len(words))]),
			Author:          authors[rng.Intn(len(authors))],
			Location:        shelves[rng.Intn(len(shelves))],
			TotalCopies:     total,
			AvailableCopies: rng.Intn(total + 1),
			RegisteredBy:    "seed",
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		switch i % 4 {
		case 0:
			b.ISBN13 = ISBN13(rng)
		case 1:
			b.LegacyISBN = ISBN13(rng)
		case 2:
			b.ExternalCode = fmt.Sprintf("LIB-%05d", i+1)
		case 3:
			b.Barcode = fmt.Sprintf("BC%08d", i+1)
		}
		out = append(out, b)
	}
	return out
}

// ISBN13 returns a random 978-prefixed ISBN-13 with a valid check digit.
func ISBN13(rng *rand.Rand) string {
	prefix := fmt.Sprintf("978%09d", rng.Intn(1_000_000_000))
	cd, err := identifier.ISBN13CheckDigit(prefix)
	if err != nil {
		panic(err)
	}
	return prefix + string(cd)
}
