package entity

import "time"

// Book is an inventory record. Older records may carry the ISBN in LegacyISBN
// only, and some were keyed by an internal code or raw barcode before an ISBN
// was captured.
type Book struct {
	ID              string    `json:"id"`
	ISBN13          string    `json:"isbn13,omitempty"`
	LegacyISBN      string    `json:"isbn,omitempty"`
	ExternalCode    string    `json:"book_id,omitempty"`
	Barcode         string    `json:"barcode,omitempty"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Location        string    `json:"location,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	RegisteredBy    string    `json:"registered_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CopiesConsistent reports whether 0 <= available <= total.
func (b Book) CopiesConsistent() bool {
	return b.AvailableCopies >= 0 && b.AvailableCopies <= b.TotalCopies
}
