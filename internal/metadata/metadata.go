// Package metadata looks up bibliographic details for an ISBN from public
// catalogues. Lookups are best-effort: callers always get a value back.
package metadata

import (
	"context"
	"errors"
	"strings"
)

// ErrNoResult is returned by a Source that answered but knew nothing.
var ErrNoResult = errors.New("metadata: no result")

// Metadata is the display and registration subset of a bibliographic record.
// Unknown fields are empty strings.
type Metadata struct {
	ISBN13    string `json:"isbn13"`
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Publisher string `json:"publisher"`
	Published string `json:"published"`
	Source    string `json:"source,omitempty"`
}

// Empty reports whether no descriptive field is known.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Authors == "" && m.Publisher == "" && m.Published == ""
}

// AuthorOr returns the author list or def when unknown.
func (m Metadata) AuthorOr(def string) string {
	if m.Authors == "" {
		return def
	}
	return m.Authors
}

// Source is one bibliographic catalogue.
type Source interface {
	Name() string
	Lookup(ctx context.Context, isbn13 string) (Metadata, error)
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
