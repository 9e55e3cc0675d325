package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentionResponsesCarryRetryAfter(t *testing.T) {
	contention := fmt.Errorf("%w: canceling statement due to lock timeout", service.ErrContention)

	t.Run("create", func(t *testing.T) {
		h := NewPayoutRequestHandler(nil)
		req := httptest.NewRequest("POST", "/v1/creators/abc/payout-requests", nil)
		w := httptest.NewRecorder()

		h.respondCreateError(w, req, uuid.New(), contention)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
	})

	t.Run("helper", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/payout-requests/abc/approve", nil)
		w := httptest.NewRecorder()

		RespondContention(w, req, "payout-request/contention", "busy")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})
}
