package circulation

import (
	"errors"
	"fmt"
	"strings"

	"librarydesk/internal/book"
)

// Kind is the severity of a Result.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Result is a presentation-ready summary of a processed scan.
type Result struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

const dateLayout = "2006-01-02"

// Present renders an outcome, or the error that prevented it, for display.
func Present(o Outcome, err error) Result {
	if err != nil {
		return presentError(o, err)
	}

	switch o.Action {
	case ActionCheckout:
		return Result{Kind: KindSuccess, Title: "Checked out", Body: lines(
			field("Title", bookTitle(o)),
			field("Borrower", o.User.DisplayName()),
			field("Due", loanDue(o)),
		)}
	case ActionReturn:
		kind, title, note := KindSuccess, "Returned", "Returned on time."
		if o.Overdue {
			kind, title, note = KindWarning, "Returned late", "This return is overdue."
		}
		return Result{Kind: kind, Title: title, Body: lines(
			field("Title", bookTitle(o)),
			field("Returned by", o.User.DisplayName()),
			field("Checked out", loanCheckedOut(o)),
			field("Due", loanDue(o)),
			note,
		)}
	case ActionRegistered:
		return Result{Kind: KindSuccess, Title: "Registered and checked out", Body: lines(
			field("Title", bookTitle(o)),
			field("Code", o.Code),
			field("Borrower", o.User.DisplayName()),
			field("Due", loanDue(o)),
			"New book registered and lent.",
		)}
	case ActionUnregistered:
		body := fmt.Sprintf("No book matches %q. Enter a title to register it.", o.Code)
		if o.Metadata != nil && o.Metadata.Title != "" {
			body = lines(body, field("Suggested title", o.Metadata.Title))
		}
		return Result{Kind: KindWarning, Title: "Not registered", Body: body}
	case ActionDuplicate:
		return Result{Kind: KindInfo, Title: "Already processed", Body: fmt.Sprintf("%q was just scanned; ignoring the repeat.", o.Code)}
	default:
		return Result{Kind: KindInfo, Title: "Nothing to do"}
	}
}

func presentError(o Outcome, err error) Result {
	switch {
	case errors.Is(err, book.ErrEmptyIdentifier):
		return Result{Kind: KindError, Title: "No identifier", Body: "Scan or enter a book code."}
	case errors.Is(err, ErrNoStock):
		return Result{Kind: KindError, Title: "Not available", Body: fmt.Sprintf("%q is currently on loan.", bookTitle(o))}
	case errors.Is(err, ErrConflict):
		return Result{Kind: KindError, Title: "Busy", Body: "The record was being changed by someone else. Try again."}
	case errors.Is(err, ErrInvariant):
		return Result{Kind: KindError, Title: "Inventory inconsistency", Body: "Copy counts for this book are inconsistent. Nothing was changed."}
	case errors.Is(err, book.ErrNotFound):
		return Result{Kind: KindWarning, Title: "Not registered", Body: fmt.Sprintf("No book matches %q.", o.Code)}
	default:
		return Result{Kind: KindError, Title: "Processing failed", Body: "The operation could not be completed. Nothing was changed."}
	}
}

func bookTitle(o Outcome) string {
	if o.Book != nil && o.Book.Title != "" {
		return o.Book.Title
	}
	if o.Loan != nil && o.Loan.BookTitle != "" {
		return o.Loan.BookTitle
	}
	if o.Code != "" {
		return o.Code
	}
	return "this book"
}

func loanDue(o Outcome) string {
	if o.Loan == nil || o.Loan.DueAt.IsZero() {
		return "-"
	}
	return o.Loan.DueAt.Format(dateLayout)
}

func loanCheckedOut(o Outcome) string {
	if o.Loan == nil || o.Loan.CheckedOutAt.IsZero() {
		return "-"
	}
	return o.Loan.CheckedOutAt.Format(dateLayout)
}

func field(label, value string) string {
	return label + ": " + value
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n")
}
