package identifier

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "plain isbn-13", raw: "9784003101018", want: "9784003101018", wantOK: true},
		{name: "979 prefix", raw: "979-10-90636-07-1", want: "9791090636071", wantOK: true},
		{name: "labelled isbn-13 with X check char", raw: "ISBN-13: 978-4-00-310101-X", want: "9784003101018", wantOK: true},
		{name: "labelled isbn-10", raw: "ISBN 0-306-40615-2", want: "9780306406157", wantOK: true},
		{name: "isbn-10 with X", raw: "080442957X", want: "9780804429573", wantOK: true},
		{name: "isbn-10 with lowercase x", raw: "080442957x", want: "9780804429573", wantOK: true},
		{name: "colon label without space", raw: "ISBN:4003101014", want: "9784003101018", wantOK: true},
		{name: "full-width digits", raw: "９７８４００３１０１０１８", want: "9784003101018", wantOK: true},
		{name: "embedded isbn-13", raw: "shelf 12 / 9790000000001 / copy 2", want: "9790000000001", wantOK: true},
		{name: "embedded isbn-10 token", raw: "ref 4003101014 shelf B", want: "9784003101018", wantOK: true},
		{name: "13 digits foreign prefix", raw: "1234567890123", wantOK: false},
		{name: "library code", raw: "LIB123456789", wantOK: false},
		{name: "library code with ten digits", raw: "LIB1234567890", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
		{name: "whitespace", raw: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_ISBN10AlwaysYieldsValidISBN13(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const checkChars = "0123456789X"

	for i := 0; i < 500; i++ {
		var sb strings.Builder
		for j := 0; j < 9; j++ {
			sb.WriteByte(byte('0' + rng.Intn(10)))
		}
		sb.WriteByte(checkChars[rng.Intn(len(checkChars))])
		isbn10 := sb.String()

		got, ok := Normalize(isbn10)
		require.True(t, ok, "isbn10 %s", isbn10)
		assert.Len(t, got, 13)
		assert.True(t, strings.HasPrefix(got, "978"), "got %s", got)
		assert.True(t, ValidISBN13(got), "checksum of %s (from %s)", got, isbn10)
	}
}

func TestNormalize_ForeignThirteenDigitsRejected(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		var sb strings.Builder
		sb.WriteByte(byte('0' + rng.Intn(9))) // never 9, so never 978/979
		for j := 0; j < 12; j++ {
			sb.WriteByte(byte('0' + rng.Intn(10)))
		}
		raw := sb.String()

		got, ok := Normalize(raw)
		assert.False(t, ok, "raw %s normalized to %s", raw, got)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := "ISBN-13: 978-4-00-310101-X"
	first, _ := Normalize(raw)
	for i := 0; i < 10; i++ {
		again, _ := Normalize(raw)
		assert.Equal(t, first, again)
	}
}

func TestISBN13CheckDigit(t *testing.T) {
	cd, err := ISBN13CheckDigit("978030640615")
	require.NoError(t, err)
	assert.Equal(t, byte('7'), cd)

	_, err = ISBN13CheckDigit("97803064061")
	assert.ErrorIs(t, err, ErrInvalidISBN)

	_, err = ISBN13CheckDigit("97803064061X")
	assert.ErrorIs(t, err, ErrInvalidISBN)
}

func TestISBN10To13(t *testing.T) {
	got, err := ISBN10To13("0306406152")
	require.NoError(t, err)
	assert.Equal(t, "9780306406157", got)

	_, err = ISBN10To13("X306406152")
	assert.ErrorIs(t, err, ErrInvalidISBN)

	_, err = ISBN10To13("030640615")
	assert.ErrorIs(t, err, ErrInvalidISBN)
}

func TestValidISBN13(t *testing.T) {
	assert.True(t, ValidISBN13("9784003101018"))
	assert.False(t, ValidISBN13("9784003101015"))
	assert.False(t, ValidISBN13("978400310101X"))
	assert.False(t, ValidISBN13(""))
}

func TestCodeAndKey(t *testing.T) {
	assert.Equal(t, "lib42", Code(" lib 42 "))
	assert.Equal(t, "978-4", Code("ISBN-13: 978-4"))
	assert.Equal(t, "LIB0001", Code("ＬＩＢ０００１"))

	assert.Equal(t, "9784003101018", Key("ISBN 978-4-00-310101-8"))
	assert.Equal(t, "9784003101018", Key("4003101014"))
	assert.Equal(t, "LIB0001", Key(" LIB 0001 "))
}
