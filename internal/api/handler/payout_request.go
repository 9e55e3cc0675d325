package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PayoutRequestHandler struct {
	svc *service.PayoutRequestService
}

func NewPayoutRequestHandler(svc *service.PayoutRequestService) *PayoutRequestHandler {
	return &PayoutRequestHandler{svc: svc}
}

// Create handles POST /v1/creators/{id}/payout-requests.
func (h *PayoutRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	creatorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-creator-id", "Invalid creator ID")
		return
	}
	if !isAdmin && creatorID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	var req struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), creatorID, req.AmountCents)
	if err != nil {
		h.respondCreateError(w, r, creatorID, err)
		return
	}

	RespondJSON(w, http.StatusCreated, created)
}

func (h *PayoutRequestHandler) respondCreateError(w http.ResponseWriter, r *http.Request, creatorID uuid.UUID, err error) {
	var (
		amountErr      *service.InvalidAmountError
		balanceErr     *service.InsufficientBalanceError
		eligibilityErr *service.NotEligibleError
	)
	switch {
	case errors.Is(err, service.ErrCreatorNotFound):
		RespondError(w, r, http.StatusNotFound, "creator/not-found", "Creator account not found")
	case errors.As(err, &amountErr):
		RespondError(w, r, http.StatusUnprocessableEntity, "payout-request/amount-below-minimum",
			fmt.Sprintf("requested %d cents is below the %d cent minimum", amountErr.RequestedCents, amountErr.MinimumCents))
	case errors.As(err, &eligibilityErr):
		reasons := make([]string, len(eligibilityErr.FailedChecks))
		for i, c := range eligibilityErr.FailedChecks {
			reasons[i] = string(c)
		}
		RespondError(w, r, http.StatusUnprocessableEntity, "payout-request/not-eligible",
			"creator is not eligible for payouts: "+strings.Join(reasons, ", "))
	case errors.As(err, &balanceErr):
		RespondError(w, r, http.StatusUnprocessableEntity, "payout-request/insufficient-balance",
			fmt.Sprintf("available balance is %d cents, requested %d cents", balanceErr.AvailableCents, balanceErr.RequestedCents))
	case errors.Is(err, service.ErrDuplicatePending):
		RespondError(w, r, http.StatusConflict, "payout-request/pending-exists", "a pending payout request already exists")
	case errors.Is(err, service.ErrTooManyAttempts):
		RespondError(w, r, http.StatusTooManyRequests, "payout-request/too-many-attempts", "too many payout request attempts, try again later")
	case errors.Is(err, service.ErrContention):
		RespondContention(w, r, "payout-request/contention", "the account is busy, retry the request")
	default:
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create payout request failed", zap.Error(err), zap.String("creator_id", creatorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "payout-request/create-failed", "Failed to create payout request")
	}
}

// List handles GET /v1/creators/{id}/payout-requests.
func (h *PayoutRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	creatorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-creator-id", "Invalid creator ID")
		return
	}
	if !isAdmin && creatorID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	requests, err := h.svc.List(r.Context(), creatorID, int32(limit), int32(offset))
	if err != nil {
		zap.L().Error("list payout requests failed", zap.Error(err), zap.String("creator_id", creatorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "payout-request/list-failed", "Failed to list payout requests")
		return
	}

	RespondJSON(w, http.StatusOK, requests)
}

// Get handles GET /v1/payout-requests/{id}.
func (h *PayoutRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-request-id", "Invalid payout request ID")
		return
	}

	request, err := h.svc.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			RespondError(w, r, http.StatusNotFound, "payout-request/not-found", "Payout request not found")
			return
		}
		zap.L().Error("get payout request failed", zap.Error(err), zap.String("request_id", requestID.String()))
		RespondError(w, r, http.StatusInternalServerError, "payout-request/read-failed", "Failed to get payout request")
		return
	}
	if !isAdmin && request.CreatorID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	RespondJSON(w, http.StatusOK, request)
}
