package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushsvc/internal/model"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{model.NewValidationError("endpoint is required"), http.StatusBadRequest},
		{fmt.Errorf("register: %w", model.NewPermissionError("nope")), http.StatusForbidden},
		{model.ErrSubscriptionNotFound, http.StatusNotFound},
		{model.NewConfigError("VAPID keys not configured"), http.StatusServiceUnavailable},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, "endpoint is required", PublicMessage(model.NewValidationError("endpoint is required")))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: password authentication failed")))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorizedWithCode(rec, ErrCodeTokenExpired, "Access token has expired")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeTokenExpired, body.Error.Code)
}
