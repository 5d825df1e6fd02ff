package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/entity"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func seeded(t *testing.T, books ...entity.Book) *Memory {
	t.Helper()
	m := NewMemory(WithRetryPolicy(fastRetry), WithMemoryClock(func() time.Time { return t0 }))
	for _, b := range books {
		m.PutBook(b)
	}
	return m
}

func sampleBook(id string, total, available int) entity.Book {
	return entity.Book{
		ID: id, ISBN13: "9784003101018", Title: "Botchan", Author: "Natsume Soseki",
		TotalCopies: total, AvailableCopies: available, CreatedAt: t0,
	}
}

func TestMemory_TxSeesOwnWrites(t *testing.T) {
	m := seeded(t, sampleBook("b1", 3, 2))
	ctx := context.Background()

	err := m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
		require.NoError(t, tx.SetAvailable(ctx, "b1", 1))
		b, err := tx.GetBook(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, 1, b.AvailableCopies)

		require.NoError(t, tx.InsertLoan(ctx, entity.Loan{ID: "l1", UserID: "u1", BookID: "b1", Status: entity.LoanStatusActive}))
		l, found, err := tx.ActiveLoan(ctx, "u1", "b1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "l1", l.ID)
		return nil
	})
	require.NoError(t, err)

	b, _ := m.Book("b1")
	assert.Equal(t, 1, b.AvailableCopies)
	assert.Len(t, m.Loans(), 1)
}

func TestMemory_FailedTxDiscardsWrites(t *testing.T) {
	m := seeded(t, sampleBook("b1", 3, 2))
	boom := errors.New("boom")

	err := m.RunInTx(context.Background(), func(ctx context.Context, tx circulation.Tx) error {
		require.NoError(t, tx.SetAvailable(ctx, "b1", 0))
		return boom
	})

	require.ErrorIs(t, err, boom)
	b, _ := m.Book("b1")
	assert.Equal(t, 2, b.AvailableCopies)
}

func TestMemory_StaleReadRetries(t *testing.T) {
	m := seeded(t, sampleBook("b1", 3, 2))
	bumped := false
	m.beforeCommit = func() {
		if !bumped {
			bumped = true
			m.PutBook(sampleBook("b1", 3, 1))
		}
	}

	attempts := 0
	var seen []int
	err := m.RunInTx(context.Background(), func(ctx context.Context, tx circulation.Tx) error {
		attempts++
		b, err := tx.GetBook(ctx, "b1")
		if err != nil {
			return err
		}
		seen = append(seen, b.AvailableCopies)
		return tx.SetAvailable(ctx, "b1", b.AvailableCopies-1)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []int{2, 1}, seen)
	b, _ := m.Book("b1")
	assert.Equal(t, 0, b.AvailableCopies)
}

func TestMemory_PersistentConflictSurfacesErrConflict(t *testing.T) {
	m := seeded(t, sampleBook("b1", 3, 2))
	m.beforeCommit = func() { m.PutBook(sampleBook("b1", 3, 2)) }

	err := m.RunInTx(context.Background(), func(ctx context.Context, tx circulation.Tx) error {
		b, err := tx.GetBook(ctx, "b1")
		if err != nil {
			return err
		}
		return tx.SetAvailable(ctx, "b1", b.AvailableCopies-1)
	})

	require.ErrorIs(t, err, circulation.ErrConflict)
}

func TestMemory_InsertBookTwice(t *testing.T) {
	m := seeded(t, sampleBook("b1", 1, 1))

	err := m.RunInTx(context.Background(), func(ctx context.Context, tx circulation.Tx) error {
		return tx.InsertBook(ctx, sampleBook("b1", 1, 0))
	})

	require.ErrorIs(t, err, circulation.ErrAlreadyRegistered)
}

func TestMemory_SetAvailableRejectsInvalidCounts(t *testing.T) {
	m := seeded(t, sampleBook("b1", 1, 1))

	err := m.RunInTx(context.Background(), func(ctx context.Context, tx circulation.Tx) error {
		return tx.SetAvailable(ctx, "b1", 2)
	})

	require.ErrorIs(t, err, circulation.ErrInvariant)
	b, _ := m.Book("b1")
	assert.Equal(t, 1, b.AvailableCopies)
}

func TestMemory_CloseLoanTwice(t *testing.T) {
	m := seeded(t, sampleBook("b1", 1, 0))
	ctx := context.Background()
	require.NoError(t, m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
		return tx.InsertLoan(ctx, entity.Loan{ID: "l1", UserID: "u1", BookID: "b1", Status: entity.LoanStatusActive})
	}))
	require.NoError(t, m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
		return tx.CloseLoan(ctx, "l1", t0)
	}))

	err := m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
		return tx.CloseLoan(ctx, "l1", t0)
	})

	require.ErrorIs(t, err, circulation.ErrConflict)
	loans := m.Loans()
	require.Len(t, loans, 1)
	assert.Equal(t, entity.LoanStatusReturned, loans[0].Status)
	require.NotNil(t, loans[0].ReturnedAt)
	assert.Equal(t, t0, *loans[0].ReturnedAt)
}

func TestMemory_ConcurrentCheckoutOfLastCopy(t *testing.T) {
	m := seeded(t, sampleBook("b1", 1, 1))
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		noStock int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			op := circulation.Toggle{
				User:       entity.User{ID: fmt.Sprintf("u%d", i)},
				BookID:     "b1",
				LoanID:     fmt.Sprintf("l%d", i),
				LoanPeriod: 14 * 24 * time.Hour,
			}
			err := m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
				_, err := op.Apply(ctx, tx, t0)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, circulation.ErrNoStock):
				noStock++
			default:
				t.Errorf("worker %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, noStock)
	b, _ := m.Book("b1")
	assert.Equal(t, 0, b.AvailableCopies)
	assert.Len(t, m.Loans(), 1)
}

func TestMemory_FindByReturnsOldest(t *testing.T) {
	older := sampleBook("b-old", 1, 1)
	older.Barcode = "SHELF-1"
	newer := sampleBook("b-new", 1, 1)
	newer.Barcode = "SHELF-1"
	newer.CreatedAt = t0.Add(time.Hour)
	m := seeded(t, newer, older)
	ctx := context.Background()

	b, err := m.FindBy(ctx, book.FieldBarcode, "SHELF-1")
	require.NoError(t, err)
	assert.Equal(t, "b-old", b.ID)

	_, err = m.FindBy(ctx, book.FieldBarcode, "SHELF-2")
	assert.ErrorIs(t, err, book.ErrNotFound)

	_, err = m.FindBy(ctx, book.Field("title"), "Botchan")
	assert.Error(t, err)
}

func TestMemory_Search(t *testing.T) {
	a := sampleBook("a", 1, 1)
	a.Title = "Kokoro"
	b := sampleBook("b", 1, 1)
	c := sampleBook("c", 1, 1)
	c.Title, c.Author = "Snow Country", "Kawabata Yasunari"
	m := seeded(t, a, b, c)

	got, err := m.Search(context.Background(), "soseki", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Botchan", got[0].Title)
	assert.Equal(t, "Kokoro", got[1].Title)

	got, err = m.Search(context.Background(), "soseki", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemory_ActiveLoansOrderedByDue(t *testing.T) {
	m := seeded(t, sampleBook("b1", 1, 0), sampleBook("b2", 1, 0))
	ctx := context.Background()
	require.NoError(t, m.RunInTx(ctx, func(ctx context.Context, tx circulation.Tx) error {
		if err := tx.InsertLoan(ctx, entity.Loan{ID: "l2", UserID: "u1", BookID: "b2", Status: entity.LoanStatusActive, DueAt: t0.Add(48 * time.Hour)}); err != nil {
			return err
		}
		if err := tx.InsertLoan(ctx, entity.Loan{ID: "l1", UserID: "u1", BookID: "b1", Status: entity.LoanStatusActive, DueAt: t0.Add(24 * time.Hour)}); err != nil {
			return err
		}
		return tx.InsertLoan(ctx, entity.Loan{ID: "l3", UserID: "u2", BookID: "b1", Status: entity.LoanStatusActive})
	}))

	loans, err := m.ActiveLoans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, "l1", loans[0].ID)
	assert.Equal(t, "l2", loans[1].ID)
}

func TestMemory_EnrichmentHelpers(t *testing.T) {
	placeholder := sampleBook("p1", 1, 0)
	placeholder.Author = circulation.UnknownAuthor
	noISBN := sampleBook("p2", 1, 0)
	noISBN.Author, noISBN.ISBN13 = circulation.UnknownAuthor, ""
	m := seeded(t, placeholder, noISBN, sampleBook("b1", 1, 1))
	ctx := context.Background()

	got, err := m.PlaceholderBooks(ctx, circulation.UnknownAuthor, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)

	require.NoError(t, m.UpdateDetails(ctx, "p1", "Botchan", "Natsume Soseki"))
	b, _ := m.Book("p1")
	assert.Equal(t, "Natsume Soseki", b.Author)
	assert.Equal(t, 0, b.AvailableCopies)

	assert.ErrorIs(t, m.UpdateDetails(ctx, "missing", "x", "y"), book.ErrNotFound)
}
