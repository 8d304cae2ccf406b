package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nebula/pkg/domain-errors"
)

type testRequest struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// fullRequest implements all preparation interfaces
type fullRequest struct {
	Name       string `json:"name"`
	normalized bool
}

func (r *fullRequest) Normalize() {
	r.normalized = true
}

func (r *fullRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestDecodeBody(t *testing.T) {
	t.Run("successful decode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"test","value":42}`))
		var target testRequest

		require.NoError(t, DecodeBody(req, &target))
		assert.Equal(t, "test", target.Name)
		assert.Equal(t, 42, target.Value)
	})

	t.Run("empty body leaves zero value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var target testRequest

		require.NoError(t, DecodeBody(req, &target))
		assert.Equal(t, testRequest{}, target)
	})

	t.Run("invalid JSON is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid json}`))
		var target testRequest

		err := DecodeBody(req, &target)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("body over the upstream limit is too large", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("a", 64) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 16)
		var target testRequest

		err := DecodeBody(req, &target)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTooLarge))
		assert.Contains(t, err.Error(), "exceeds 16 bytes")

		WriteError(w, err)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestPrepareRequest(t *testing.T) {
	t.Run("normalizes then validates", func(t *testing.T) {
		req := &fullRequest{Name: "ok"}
		require.NoError(t, PrepareRequest(req))
		assert.True(t, req.normalized)
	})

	t.Run("returns validation error", func(t *testing.T) {
		req := &fullRequest{}
		assert.EqualError(t, PrepareRequest(req), "name is required")
	})

	t.Run("plain structs pass through", func(t *testing.T) {
		assert.NoError(t, PrepareRequest(&testRequest{}))
	})
}

func TestWriteErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "asset 1 not found"), http.StatusNotFound, "not_found"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "missing scope"), http.StatusForbidden, "forbidden"},
		{"validation", dErrors.New(dErrors.CodeValidation, "ids is required"), http.StatusBadRequest, "validation_error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}
