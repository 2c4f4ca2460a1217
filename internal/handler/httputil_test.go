package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/store"
)

func TestParseAsOf(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"", time.Time{}},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15T10:00:00-05:00", time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseAsOf(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
	}

	_, err := parseAsOf("15/03/2024")
	assert.Error(t, err)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"limit=5", 5},
		{"limit=0", 100},
		{"limit=abc", 100},
		{"limit=9999", 500},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		assert.Equal(t, tt.want, parseLimit(r, 100), tt.query)
	}
}

func TestStoreErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", profile.ErrUnknownProfile), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		storeErrorToHTTP(rec, tt.err)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteError_FlatEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "EMPTY_BATCH", "wells must not be empty")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "wells must not be empty", "code": "EMPTY_BATCH"}, body)
}
