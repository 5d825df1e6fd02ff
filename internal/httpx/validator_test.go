package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scanInput struct {
	Code  string `json:"code" validate:"notblank,max=128"`
	ISBN  string `json:"isbn" validate:"omitempty,isbn"`
	Limit int    `json:"limit" validate:"gte=0,lte=100"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(scanInput{Code: "LIB0001", ISBN: "ISBN 4-00-310101-4"}))

	details := ValidateStruct(scanInput{Code: "  ", ISBN: "12345", Limit: 500})
	fields := map[string]string{}
	for _, d := range details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "code is required", fields["code"])
	assert.Contains(t, fields["isbn"], "ISBN")
	assert.Contains(t, fields, "limit")
}

func TestValidateVar(t *testing.T) {
	assert.True(t, ValidateVar("9784003101018", "isbn"))
	assert.False(t, ValidateVar("1234567890123", "isbn"))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{name: "valid", body: `{"code":"LIB0001"}`, wantOK: true},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest},
		{name: "malformed", body: `{"code":`, wantCode: http.StatusBadRequest},
		{name: "unknown field", body: `{"code":"x","extra":1}`, wantCode: http.StatusBadRequest},
		{name: "fails validation", body: `{"code":""}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var in scanInput

			ok := DecodeJSON(w, r, &in)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, tt.wantCode, w.Code)
			}
		})
	}
}
