package book

import (
	"errors"
)

var (
	// ErrNotFound is returned when no inventory record matches.
	ErrNotFound = errors.New("book not found")
	// ErrEmptyIdentifier is returned when a lookup is attempted with blank input.
	ErrEmptyIdentifier = errors.New("empty identifier")
)

// Field names a column a book can be looked up by.
type Field string

const (
	FieldISBN13       Field = "isbn13"
	FieldLegacyISBN   Field = "isbn"
	FieldID           Field = "id"
	FieldExternalCode Field = "book_id"
	FieldBarcode      Field = "barcode"
)

// Valid reports whether f is one of the known lookup fields.
func (f Field) Valid() bool {
	switch f {
	case FieldISBN13, FieldLegacyISBN, FieldID, FieldExternalCode, FieldBarcode:
		return true
	}
	return false
}

// DefaultSearchLimit caps OPAC search results when the caller gives no limit.
const DefaultSearchLimit = 20

// MaxSearchLimit is the hard cap for OPAC search results.
const MaxSearchLimit = 100

// ClampLimit applies the default and the hard cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
