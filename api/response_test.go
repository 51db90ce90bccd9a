package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/lumen/internal/log"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "world", body["hello"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	writeError(rec, codeSessionNotFound, "session not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session_not_found", body.Error)
	assert.Equal(t, "session not found", body.Message)
}

func TestErrCodeStatus(t *testing.T) {
	tests := []struct {
		code errCode
		want int
	}{
		{codeInvalidRequest, http.StatusBadRequest},
		{codeSessionNotFound, http.StatusNotFound},
		{codeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.httpStatus(), "code %s", tt.code)
	}
}

func TestReadinessWithoutPool(t *testing.T) {
	h := NewHealthHandler(nil, log.NewNop())
	rec := httptest.NewRecorder()

	h.readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
}
