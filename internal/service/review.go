package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/notify"
	"github.com/fanvault/creator-payouts/internal/observability"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
)

// ReviewService owns all status transitions on payout requests and the
// creation of payout rows. A payout must never exist without a corresponding
// approved request, so both writes share one transaction.
type ReviewService struct {
	store    QueryStore
	audit    *AuditService
	notifier notify.Notifier
}

func NewReviewService(store QueryStore, notifier notify.Notifier) *ReviewService {
	return &ReviewService{
		store:    store,
		audit:    NewAuditService(),
		notifier: notifier,
	}
}

// Approve transitions PENDING -> APPROVED and creates the linked payout.
// Re-approving a request that already left PENDING fails with
// ErrInvalidState; the row lock makes concurrent double-approval impossible.
func (s *ReviewService) Approve(ctx context.Context, requestID, reviewerID uuid.UUID, notes string) (*models.PayoutRequest, error) {
	var request *models.PayoutRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		pr, err := qtx.GetPayoutRequestForUpdate(ctx, requestID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("lock payout request: %w", err)
		}
		if pr.Status != domain.RequestStatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, pr.Status)
		}

		payout := &models.Payout{
			ID:              uuid.New(),
			PayoutRequestID: pr.ID,
			CreatorID:       pr.CreatorID,
			AmountCents:     pr.RequestedCents,
			Currency:        pr.Currency,
			Status:          domain.PayoutStatusPending,
			PaymentMethod:   "bank_transfer",
		}
		if err := qtx.InsertPayout(ctx, payout); err != nil {
			return err
		}

		now := time.Now()
		rows, err := qtx.ReviewPayoutRequest(ctx, repository.ReviewPayoutRequestParams{
			ID:         pr.ID,
			Status:     domain.RequestStatusApproved,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
			Notes:      textParam(strings.TrimSpace(notes)),
			PayoutID:   &payout.ID,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "approve payout request"); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]any{"payout_id": payout.ID.String()})
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "payout_request", pr.ID, &reviewerID, "approved",
			domain.RequestStatusPending, domain.RequestStatusApproved, metadata); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, "payout", payout.ID, &reviewerID, "created",
			"", domain.PayoutStatusPending, nil); err != nil {
			return err
		}

		pr.Status = domain.RequestStatusApproved
		pr.ReviewedBy = &reviewerID
		pr.ReviewedAt = &now
		pr.ReviewNotes = textParam(strings.TrimSpace(notes))
		pr.PayoutID = &payout.ID
		pr.Payout = payout
		request = pr
		return nil
	})
	if err != nil {
		if repository.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrContention, err)
		}
		return nil, err
	}

	observability.IncrementReviewTransition("approved")
	s.notifier.Publish(ctx, notify.Event{
		Type: notify.EventPayoutRequestApproved,
		Payload: map[string]any{
			"request_id": request.ID.String(),
			"creator_id": request.CreatorID.String(),
			"payout_id":  request.PayoutID.String(),
		},
	})
	return request, nil
}

// Reject transitions PENDING -> REJECTED. Notes are mandatory: they are the
// only audit trail of why funds were withheld. The reserved amount returns
// to available implicitly because balance derivation excludes REJECTED rows.
func (s *ReviewService) Reject(ctx context.Context, requestID, reviewerID uuid.UUID, notes string) (*models.PayoutRequest, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrNotesRequired
	}

	var request *models.PayoutRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		pr, err := qtx.GetPayoutRequestForUpdate(ctx, requestID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("lock payout request: %w", err)
		}
		if pr.Status != domain.RequestStatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, pr.Status)
		}

		now := time.Now()
		rows, err := qtx.ReviewPayoutRequest(ctx, repository.ReviewPayoutRequestParams{
			ID:         pr.ID,
			Status:     domain.RequestStatusRejected,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
			Notes:      &notes,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "reject payout request"); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]string{"reason": notes})
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "payout_request", pr.ID, &reviewerID, "rejected",
			domain.RequestStatusPending, domain.RequestStatusRejected, metadata); err != nil {
			return err
		}

		pr.Status = domain.RequestStatusRejected
		pr.ReviewedBy = &reviewerID
		pr.ReviewedAt = &now
		pr.ReviewNotes = &notes
		request = pr
		return nil
	})
	if err != nil {
		if repository.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrContention, err)
		}
		return nil, err
	}

	observability.IncrementReviewTransition("rejected")
	s.notifier.Publish(ctx, notify.Event{
		Type: notify.EventPayoutRequestRejected,
		Payload: map[string]any{
			"request_id": request.ID.String(),
			"creator_id": request.CreatorID.String(),
			"reason":     notes,
		},
	})
	return request, nil
}
