package entity

import "time"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan records one checkout of a book by a user. A loan is created active and
// moves to returned exactly once.
type Loan struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	BookID       string     `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	ISBN13       string     `json:"isbn13,omitempty"`
	Status       LoanStatus `json:"status"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
	DueAt        time.Time  `json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at"`
}

// Active reports whether the loan has not been returned yet.
func (l Loan) Active() bool {
	return l.Status == LoanStatusActive
}

// OverdueAt reports whether the loan was past due at the given instant.
func (l Loan) OverdueAt(now time.Time) bool {
	return !l.DueAt.IsZero() && l.DueAt.Before(now)
}
