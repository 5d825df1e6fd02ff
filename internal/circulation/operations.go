package circulation

import (
	"context"
	"fmt"
	"time"

	"librarydesk/internal/entity"
)

// Operation is one atomic unit of circulation work. Apply runs inside a
// transaction and may be invoked more than once if the store retries.
type Operation interface {
	Name() string
	Apply(ctx context.Context, tx Tx, now time.Time) (Outcome, error)
}

// Toggle returns the book if the user holds an active loan for it and checks
// it out otherwise.
//
// Pre: the book exists; checkout needs available > 0.
// Post: 0 <= available <= total; at most one active loan per user and book.
type Toggle struct {
	User       entity.User
	BookID     string
	LoanID     string
	LoanPeriod time.Duration
}

func (op Toggle) Name() string { return "toggle" }

func (op Toggle) Apply(ctx context.Context, tx Tx, now time.Time) (Outcome, error) {
	b, err := tx.GetBook(ctx, op.BookID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load book %s: %w", op.BookID, err)
	}
	out := Outcome{User: op.User, Code: b.ID, ISBN13: b.ISBN13}

	loan, found, err := tx.ActiveLoan(ctx, op.User.ID, b.ID)
	if err != nil {
		return out, fmt.Errorf("load active loan: %w", err)
	}

	if found {
		b.AvailableCopies = min(b.TotalCopies, b.AvailableCopies+1)
		if err := checkCopies(b); err != nil {
			return out, err
		}
		if err := tx.CloseLoan(ctx, loan.ID, now); err != nil {
			return out, fmt.Errorf("close loan %s: %w", loan.ID, err)
		}
		if err := tx.SetAvailable(ctx, b.ID, b.AvailableCopies); err != nil {
			return out, fmt.Errorf("update copies: %w", err)
		}
		returnedAt := now
		loan.Status = entity.LoanStatusReturned
		loan.ReturnedAt = &returnedAt

		out.Action = ActionReturn
		out.Book = &b
		out.Loan = &loan
		out.Overdue = loan.OverdueAt(now)
		return out, nil
	}

	out.Action = ActionCheckout
	out.Book = &b
	if b.AvailableCopies <= 0 {
		return out, ErrNoStock
	}
	b.AvailableCopies--
	if err := checkCopies(b); err != nil {
		return out, err
	}

	loan = newLoan(op.LoanID, op.User, b, now, op.LoanPeriod)
	if err := tx.SetAvailable(ctx, b.ID, b.AvailableCopies); err != nil {
		return out, fmt.Errorf("update copies: %w", err)
	}
	if err := tx.InsertLoan(ctx, loan); err != nil {
		return out, fmt.Errorf("insert loan: %w", err)
	}
	out.Loan = &loan
	return out, nil
}

// RegisterAndCheckout creates a single-copy record for an unknown code and
// lends that copy to the registering user in the same transaction.
//
// Pre: no book has ID == Code.
// Post: total = 1, available = 0, one active loan.
type RegisterAndCheckout struct {
	User       entity.User
	Code       string
	ISBN13     string
	Title      string
	Author     string
	LoanID     string
	LoanPeriod time.Duration
}

func (op RegisterAndCheckout) Name() string { return "register-and-checkout" }

func (op RegisterAndCheckout) Apply(ctx context.Context, tx Tx, now time.Time) (Outcome, error) {
	out := Outcome{User: op.User, Code: op.Code, ISBN13: op.ISBN13}

	b := entity.Book{
		ID:              op.Code,
		ExternalCode:    op.Code,
		ISBN13:          op.ISBN13,
		Title:           op.Title,
		Author:          op.Author,
		TotalCopies:     1,
		AvailableCopies: 0,
		RegisteredBy:    op.User.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := checkCopies(b); err != nil {
		return out, err
	}
	if err := tx.InsertBook(ctx, b); err != nil {
		return out, fmt.Errorf("insert book %s: %w", op.Code, err)
	}

	loan := newLoan(op.LoanID, op.User, b, now, op.LoanPeriod)
	if err := tx.InsertLoan(ctx, loan); err != nil {
		return out, fmt.Errorf("insert loan: %w", err)
	}

	out.Action = ActionRegistered
	out.Book = &b
	out.Loan = &loan
	return out, nil
}

func newLoan(id string, u entity.User, b entity.Book, now time.Time, period time.Duration) entity.Loan {
	return entity.Loan{
		ID:           id,
		UserID:       u.ID,
		BookID:       b.ID,
		BookTitle:    b.Title,
		ISBN13:       b.ISBN13,
		Status:       entity.LoanStatusActive,
		CheckedOutAt: now,
		DueAt:        now.Add(period),
	}
}

func checkCopies(b entity.Book) error {
	if !b.CopiesConsistent() {
		return fmt.Errorf("%w: book %s available=%d total=%d", ErrInvariant, b.ID, b.AvailableCopies, b.TotalCopies)
	}
	return nil
}
