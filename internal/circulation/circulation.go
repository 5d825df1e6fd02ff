// Package circulation decides whether a scanned book is checked out, returned
// or registered, and performs that decision as one atomic store operation.
package circulation

import (
	"errors"

	"librarydesk/internal/entity"
	"librarydesk/internal/metadata"
)

var (
	// ErrNoStock means every copy is on loan.
	ErrNoStock = errors.New("no copies available")
	// ErrConflict means the store kept rejecting the commit because of
	// concurrent writers and the retry budget ran out.
	ErrConflict = errors.New("transaction conflict")
	// ErrInvariant means an operation would have left inventory counts
	// outside 0 <= available <= total. The transaction is aborted.
	ErrInvariant = errors.New("inventory invariant violated")
	// ErrAlreadyRegistered means a registration targeted an existing book ID.
	ErrAlreadyRegistered = errors.New("book already registered")
)

// Action is what a processed scan did.
type Action string

const (
	ActionCheckout     Action = "checkout"
	ActionReturn       Action = "return"
	ActionRegistered   Action = "registered"
	ActionUnregistered Action = "unregistered"
	ActionDuplicate    Action = "duplicate"
)

// Outcome describes a processed scan. Book and Loan reflect the committed
// state; they are nil when nothing was found.
type Outcome struct {
	Action   Action             `json:"action"`
	Code     string             `json:"code"`
	ISBN13   string             `json:"isbn13,omitempty"`
	User     entity.User        `json:"user"`
	Book     *entity.Book       `json:"book,omitempty"`
	Loan     *entity.Loan       `json:"loan,omitempty"`
	Overdue  bool               `json:"overdue"`
	Metadata *metadata.Metadata `json:"metadata,omitempty"`
}

// LoanView is an active loan as shown to its borrower.
type LoanView struct {
	entity.Loan
	Overdue bool `json:"overdue"`
}
