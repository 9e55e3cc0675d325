package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewHandler exposes the admin approve/reject workflow. The router
// mounts it behind RequireRole(admin).
type ReviewHandler struct {
	svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type reviewBody struct {
	Notes string `json:"notes"`
}

type reviewFunc func(ctx context.Context, requestID, reviewerID uuid.UUID, notes string) (*models.PayoutRequest, error)

// Approve handles POST /v1/payout-requests/{id}/approve.
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve", h.svc.Approve)
}

// Reject handles POST /v1/payout-requests/{id}/reject.
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject", h.svc.Reject)
}

func (h *ReviewHandler) review(w http.ResponseWriter, r *http.Request, action string, apply reviewFunc) {
	reviewerID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid payout request ID")
		return
	}

	var body reviewBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
			return
		}
	}

	request, err := apply(r.Context(), requestID, reviewerID, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			RespondError(w, r, http.StatusNotFound, "payout-request/not-found", "Payout request not found")
		case errors.Is(err, service.ErrInvalidState):
			RespondError(w, r, http.StatusConflict, "payout-request/not-reviewable", "only pending requests can be reviewed")
		case errors.Is(err, service.ErrNotesRequired):
			RespondError(w, r, http.StatusUnprocessableEntity, "payout-request/notes-required", "review notes are required when rejecting")
		case errors.Is(err, service.ErrContention):
			RespondContention(w, r, "payout-request/contention", "the request is busy, retry the review")
		default:
			zap.L().Error("review payout request failed",
				zap.Error(err),
				zap.String("action", action),
				zap.String("request_id", requestID.String()))
			RespondError(w, r, http.StatusInternalServerError, "payout-request/review-failed", "Failed to review payout request")
		}
		return
	}

	RespondJSON(w, http.StatusOK, request)
}
