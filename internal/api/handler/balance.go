package handler

import (
	"errors"
	"net/http"

	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BalanceHandler struct {
	svc *service.BalanceService
}

func NewBalanceHandler(svc *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

// GetBalance handles GET /v1/creators/{id}/balance.
// Creators can only read their own balance; admins can read any.
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
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

	balance, err := h.svc.GetBalance(r.Context(), creatorID)
	if err != nil {
		if errors.Is(err, service.ErrCreatorNotFound) {
			RespondError(w, r, http.StatusNotFound, "creator/not-found", "Creator account not found")
			return
		}
		zap.L().Error("get balance failed", zap.Error(err), zap.String("creator_id", creatorID.String()))
		RespondError(w, r, http.StatusInternalServerError, "creator/balance-read-failed", "Failed to get balance")
		return
	}

	RespondJSON(w, http.StatusOK, balance)
}
