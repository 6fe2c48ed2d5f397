package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, map[string]string{"color": "sage"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"color": "sage"}, resp.Data)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter) error
		wantStatus int
		wantError  string
	}{
		{"bad request", func(w http.ResponseWriter) error {
			return WriteBadRequest(w, "nope", map[string]interface{}{"field": "bad"})
		}, http.StatusBadRequest, "bad_request"},
		{"unauthorized", func(w http.ResponseWriter) error {
			return WriteUnauthorized(w, "")
		}, http.StatusUnauthorized, "unauthorized"},
		{"service unavailable", func(w http.ResponseWriter) error {
			return WriteServiceUnavailable(w, "all disabled")
		}, http.StatusServiceUnavailable, "service_unavailable"},
		{"bad gateway", func(w http.ResponseWriter) error {
			return WriteBadGateway(w, "chain exhausted")
		}, http.StatusBadGateway, "upstream_failed"},
		{"internal error", func(w http.ResponseWriter) error {
			return WriteInternalError(w, "")
		}, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, tt.write(rec))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
