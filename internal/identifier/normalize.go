package identifier

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidISBN is returned by the conversion helpers for malformed input.
	ErrInvalidISBN = errors.New("invalid isbn")

	isbnPrefix  = regexp.MustCompile(`(?i)^\s*ISBN(?:-1[03])?\s*:?\s*`)
	nonAlnum    = regexp.MustCompile(`[^0-9A-Za-z]`)
	hyphenSpace = regexp.MustCompile(`[-\s]`)
	whitespace  = regexp.MustCompile(`\s+`)

	// Digit-bounded so a 13-digit run inside a longer number does not count.
	isbn13Run = regexp.MustCompile(`(?:^|[^0-9])(97[89][0-9]{10})(?:[^0-9]|$)`)
	// Token-bounded: "LIB1234567890" is an internal code, not an ISBN-10.
	isbn10Run = regexp.MustCompile(`(?:^|[^0-9A-Za-z])([0-9]{9}[0-9Xx])(?:[^0-9A-Za-z]|$)`)
)

// Fold applies NFKC so full-width digits and letters produced by CJK OCR
// compare equal to their ASCII forms.
func Fold(s string) string {
	return norm.NFKC.String(s)
}

// Normalize derives a canonical ISBN-13 from raw scan or keyboard input.
// The second result is false when no ISBN can be derived; callers then treat
// the input as an opaque internal code (see Code).
func Normalize(raw string) (string, bool) {
	folded := Fold(raw)
	text := isbnPrefix.ReplaceAllString(folded, "")
	cleaned := nonAlnum.ReplaceAllString(text, "")

	switch {
	case len(cleaned) == 13 && allDigits(cleaned):
		if hasISBN13Prefix(cleaned) {
			return cleaned, true
		}
		// A bare 13-digit number with a foreign prefix is only accepted if a
		// real ISBN-13 run sits elsewhere in the raw text.
		return embeddedISBN13(hyphenSpace.ReplaceAllString(text, ""), folded)
	case len(cleaned) == 13 && allDigits(cleaned[:12]) && isCheckX(cleaned[12]) && hasISBN13Prefix(cleaned):
		// ISBN-13 printed with an ISBN-10 style "X" check character.
		cd, err := ISBN13CheckDigit(cleaned[:12])
		if err != nil {
			return "", false
		}
		return cleaned[:12] + string(cd), true
	case isISBN10(cleaned):
		isbn, err := ISBN10To13(cleaned)
		if err != nil {
			return "", false
		}
		return isbn, true
	}

	stripped := hyphenSpace.ReplaceAllString(text, "")
	if isbn, ok := embeddedISBN13(stripped, folded); ok {
		return isbn, true
	}
	for _, s := range []string{stripped, folded} {
		if m := isbn10Run.FindStringSubmatch(s); m != nil {
			if isbn, err := ISBN10To13(m[1]); err == nil {
				return isbn, true
			}
		}
	}
	return "", false
}

// Code reduces raw input to the opaque form used for internal-code and
// barcode lookups: whitespace removed and any leading ISBN label dropped.
func Code(raw string) string {
	s := whitespace.ReplaceAllString(Fold(raw), "")
	return isbnPrefix.ReplaceAllString(s, "")
}

// Key returns the identity used to recognise repeated scans of the same item:
// the canonical ISBN-13 when derivable, otherwise the opaque code.
func Key(raw string) string {
	if isbn, ok := Normalize(raw); ok {
		return isbn
	}
	return Code(raw)
}

// ISBN13CheckDigit computes the check digit for a 12-digit ISBN-13 prefix
// using alternating weights 1 and 3.
func ISBN13CheckDigit(prefix string) (byte, error) {
	if len(prefix) != 12 || !allDigits(prefix) {
		return 0, ErrInvalidISBN
	}
	sum := 0
	for i := 0; i < len(prefix); i++ {
		n := int(prefix[i] - '0')
		if i%2 == 0 {
			sum += n
		} else {
			sum += n * 3
		}
	}
	return byte('0' + (10-sum%10)%10), nil
}

// ISBN10To13 converts an ISBN-10 (nine digits plus a digit or X) into its
// ISBN-13 form. The ISBN-10 check character is discarded, not verified.
func ISBN10To13(isbn10 string) (string, error) {
	if !isISBN10(isbn10) {
		return "", ErrInvalidISBN
	}
	prefix := "978" + isbn10[:9]
	cd, err := ISBN13CheckDigit(prefix)
	if err != nil {
		return "", err
	}
	return prefix + string(cd), nil
}

// ValidISBN13 reports whether s is 13 digits with a correct check digit.
func ValidISBN13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	cd, err := ISBN13CheckDigit(s[:12])
	return err == nil && cd == s[12]
}

func embeddedISBN13(candidates ...string) (string, bool) {
	for _, s := range candidates {
		if m := isbn13Run.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func isISBN10(s string) bool {
	return len(s) == 10 && allDigits(s[:9]) && (isDigit(s[9]) || isCheckX(s[9]))
}

func hasISBN13Prefix(s string) bool {
	return strings.HasPrefix(s, "978") || strings.HasPrefix(s, "979")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isCheckX(c byte) bool { return c == 'X' || c == 'x' }
