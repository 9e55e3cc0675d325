package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookHandler receives outcome callbacks from the payment processor.
type WebhookHandler struct {
	outcomes *service.OutcomeService
	hmacKey  []byte
	skipSig  bool
}

func NewWebhookHandler(outcomes *service.OutcomeService, hmacKey string, skipSignature bool) *WebhookHandler {
	return &WebhookHandler{
		outcomes: outcomes,
		hmacKey:  []byte(hmacKey),
		skipSig:  skipSignature,
	}
}

type outcomeWebhookBody struct {
	PayoutID  string  `json:"payout_id"`
	Status    string  `json:"status"`
	PaymentID *string `json:"payment_id,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// HandlePayoutOutcome handles POST /v1/webhooks/payout-outcome.
// The signature header carries a hex HMAC-SHA256 of the raw body.
func (h *WebhookHandler) HandlePayoutOutcome(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "webhook/unreadable-body", "Failed to read request body")
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
		return
	}

	var req outcomeWebhookBody
	if err := json.Unmarshal(body, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	payoutID, err := uuid.Parse(req.PayoutID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "webhook/invalid-payout-id", "Invalid payout_id")
		return
	}

	payout, err := h.outcomes.ReportOutcome(r.Context(), service.ReportOutcomeParams{
		PayoutID:  payoutID,
		Status:    req.Status,
		PaymentID: req.PaymentID,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutNotFound):
			RespondError(w, r, http.StatusNotFound, "payout/not-found", "Payout not found")
		case errors.Is(err, service.ErrUnsupportedOutcome):
			RespondError(w, r, http.StatusUnprocessableEntity, "webhook/unsupported-outcome", "outcome status must be COMPLETED or FAILED")
		default:
			zap.L().Error("process payout outcome failed", zap.Error(err), zap.String("payout_id", payoutID.String()))
			RespondError(w, r, http.StatusInternalServerError, "webhook/outcome-failed", "Failed to process payout outcome")
		}
		return
	}

	RespondJSON(w, http.StatusOK, payout)
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.skipSig {
		return true
	}
	if len(h.hmacKey) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.hmacKey)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
