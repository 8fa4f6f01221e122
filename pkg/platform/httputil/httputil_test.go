package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "longtrees/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("field errors carry the field", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.MissingField("quantity"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "missing_field", body["error"])
		assert.Equal(t, "quantity", body["field"])
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "unexpected EOF")
	})
}

func TestDecodeFields(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(contentType, body string) (map[string]any, *httptest.ResponseRecorder, bool) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		fields, ok := DecodeFields(w, r, logger, context.Background(), "req-1")
		return fields, w, ok
	}

	t.Run("json keeps numbers exact", func(t *testing.T) {
		fields, _, ok := decode("application/json", `{"quantity": 50, "origin": {"supplier": "x"}}`)
		require.True(t, ok)
		assert.Equal(t, json.Number("50"), fields["quantity"])
		assert.Equal(t, map[string]any{"supplier": "x"}, fields["origin"])
	})

	t.Run("missing content type is read as json", func(t *testing.T) {
		fields, _, ok := decode("", `{"name": "A. Rivera"}`)
		require.True(t, ok)
		assert.Equal(t, "A. Rivera", fields["name"])
	})

	t.Run("form body", func(t *testing.T) {
		fields, _, ok := decode("application/x-www-form-urlencoded", "name=A.+Rivera&joined_at=2024-01-10")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"name": "A. Rivera", "joined_at": "2024-01-10"}, fields)
	})

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty body", "application/json", ""},
		{"array body", "application/json", `[1, 2]`},
		{"null body", "application/json", `null`},
		{"trailing data", "application/json", `{"a": 1} {"b": 2}`},
		{"unsupported type", "text/plain", "name=x"},
		{"too large", "application/json", `{"a": "` + strings.Repeat("x", MaxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, w, ok := decode(tt.contentType, tt.body)
			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
