package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"librarydesk/internal/book"
	"librarydesk/internal/circulation"
	"librarydesk/internal/entity"
)

// Memory is an in-process store with optimistic concurrency: each
// transaction records the versions it read and commit fails when any of
// them moved. It backs tests and the offline CLI mode.
type Memory struct {
	mu       sync.Mutex
	books    map[string]entity.Book
	loans    map[string]entity.Loan
	versions map[string]uint64
	retry    RetryPolicy
	now      func() time.Time

	// beforeCommit, when set, runs after fn and before validation.
	beforeCommit func()
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

func WithRetryPolicy(p RetryPolicy) MemoryOption {
	return func(m *Memory) { m.retry = p }
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		books:    map[string]entity.Book{},
		loans:    map[string]entity.Loan{},
		versions: map[string]uint64{},
		retry:    DefaultRetryPolicy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func bookKey(id string) string            { return "book:" + id }
func pairKey(userID, bookID string) string { return "pair:" + userID + "|" + bookID }

// PutBook inserts or replaces a record outside any transaction.
func (m *Memory) PutBook(b entity.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	m.versions[bookKey(b.ID)]++
}

// Book returns a committed record.
func (m *Memory) Book(id string) (entity.Book, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	return b, ok
}

// Loans returns every committed loan, oldest first.
func (m *Memory) Loans() []entity.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, l)
	}
	sortLoans(out)
	return out
}

func sortLoans(ls []entity.Loan) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CheckedOutAt.Equal(ls[j].CheckedOutAt) {
			return ls[i].CheckedOutAt.Before(ls[j].CheckedOutAt)
		}
		return ls[i].ID < ls[j].ID
	})
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	return retryOnConflict(ctx, m.retry, isMemoryConflict, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{
			m:          m,
			reads:      map[string]uint64{},
			bookWrites: map[string]entity.Book{},
			loanWrites: map[string]entity.Loan{},
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if m.beforeCommit != nil {
			m.beforeCommit()
		}
		return m.commit(tx)
	})
}

func isMemoryConflict(err error) bool {
	return errors.Is(err, errWriteConflict)
}

func (m *Memory) commit(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, seen := range tx.reads {
		if m.versions[key] != seen {
			return fmt.Errorf("commit: %s changed: %w", key, errWriteConflict)
		}
	}
	for id, b := range tx.bookWrites {
		m.books[id] = b
		m.versions[bookKey(id)]++
	}
	for id, l := range tx.loanWrites {
		m.loans[id] = l
		m.versions[pairKey(l.UserID, l.BookID)]++
	}
	return nil
}

func (m *Memory) ActiveLoans(ctx context.Context, userID string) ([]entity.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Loan{}
	for _, l := range m.loans {
		if l.UserID == userID && l.Active() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// FindBy returns the oldest record whose field equals value.
func (m *Memory) FindBy(ctx context.Context, field book.Field, value string) (entity.Book, error) {
	if !field.Valid() {
		return entity.Book{}, fmt.Errorf("find book: unknown field %q", field)
	}
	if err := ctx.Err(); err != nil {
		return entity.Book{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  entity.Book
		found bool
	)
	for _, b := range m.books {
		if fieldValue(b, field) != value {
			continue
		}
		if !found || b.CreatedAt.Before(best.CreatedAt) || (b.CreatedAt.Equal(best.CreatedAt) && b.ID < best.ID) {
			best, found = b, true
		}
	}
	if !found {
		return entity.Book{}, book.ErrNotFound
	}
	return best, nil
}

func fieldValue(b entity.Book, f book.Field) string {
	switch f {
	case book.FieldISBN13:
		return b.ISBN13
	case book.FieldLegacyISBN:
		return b.LegacyISBN
	case book.FieldID:
		return b.ID
	case book.FieldExternalCode:
		return b.ExternalCode
	case book.FieldBarcode:
		return b.Barcode
	}
	return ""
}

// Search matches title or author case-insensitively, ordered by title.
func (m *Memory) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	m.mu.Lock()
	out := []entity.Book{}
	for _, b := range m.books {
		if strings.Contains(strings.ToLower(b.Title), needle) || strings.Contains(strings.ToLower(b.Author), needle) {
			out = append(out, b)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	if limit = book.ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PlaceholderBooks lists records whose author is still the placeholder.
func (m *Memory) PlaceholderBooks(ctx context.Context, placeholder string, limit int) ([]entity.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Book{}
	for _, b := range m.books {
		if b.Author == placeholder && b.ISBN13 != "" {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateDetails rewrites title and author only.
func (m *Memory) UpdateDetails(ctx context.Context, id, title, author string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return book.ErrNotFound
	}
	b.Title, b.Author, b.UpdatedAt = title, author, m.now()
	m.books[id] = b
	m.versions[bookKey(id)]++
	return nil
}

type memTx struct {
	m          *Memory
	reads      map[string]uint64
	bookWrites map[string]entity.Book
	loanWrites map[string]entity.Loan
}

// observe records the committed version of key the first time it is read.
// Callers hold m.mu.
func (tx *memTx) observe(key string) {
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = tx.m.versions[key]
	}
}

func (tx *memTx) GetBook(ctx context.Context, id string) (entity.Book, error) {
	if b, ok := tx.bookWrites[id]; ok {
		return b, nil
	}
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	tx.observe(bookKey(id))
	b, ok := tx.m.books[id]
	if !ok {
		return entity.Book{}, book.ErrNotFound
	}
	return b, nil
}

func (tx *memTx) ActiveLoan(ctx context.Context, userID, bookID string) (entity.Loan, bool, error) {
	tx.m.mu.Lock()
	tx.observe(pairKey(userID, bookID))
	merged := map[string]entity.Loan{}
	for id, l := range tx.m.loans {
		if l.UserID == userID && l.BookID == bookID {
			merged[id] = l
		}
	}
	tx.m.mu.Unlock()
	for id, l := range tx.loanWrites {
		if l.UserID == userID && l.BookID == bookID {
			merged[id] = l
		}
	}
	for _, l := range merged {
		if l.Active() {
			return l, true, nil
		}
	}
	return entity.Loan{}, false, nil
}

func (tx *memTx) SetAvailable(ctx context.Context, bookID string, available int) error {
	b, err := tx.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	b.AvailableCopies = available
	b.UpdatedAt = tx.m.now()
	if !b.CopiesConsistent() {
		return fmt.Errorf("%w: available %d of %d", circulation.ErrInvariant, b.AvailableCopies, b.TotalCopies)
	}
	tx.bookWrites[bookID] = b
	return nil
}

func (tx *memTx) InsertBook(ctx context.Context, b entity.Book) error {
	if _, err := tx.GetBook(ctx, b.ID); err == nil {
		return circulation.ErrAlreadyRegistered
	} else if !errors.Is(err, book.ErrNotFound) {
		return err
	}
	tx.bookWrites[b.ID] = b
	return nil
}

func (tx *memTx) InsertLoan(ctx context.Context, l entity.Loan) error {
	_, active, err := tx.ActiveLoan(ctx, l.UserID, l.BookID)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("active loan exists for %s: %w", l.BookID, errWriteConflict)
	}
	tx.loanWrites[l.ID] = l
	return nil
}

func (tx *memTx) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error {
	l, ok := tx.loanWrites[loanID]
	if !ok {
		tx.m.mu.Lock()
		l, ok = tx.m.loans[loanID]
		if ok {
			tx.observe(pairKey(l.UserID, l.BookID))
		}
		tx.m.mu.Unlock()
	}
	if !ok {
		return fmt.Errorf("loan %s not found", loanID)
	}
	if !l.Active() {
		return fmt.Errorf("loan %s already returned: %w", loanID, errWriteConflict)
	}
	at := returnedAt
	l.Status = entity.LoanStatusReturned
	l.ReturnedAt = &at
	tx.loanWrites[loanID] = l
	return nil
}
