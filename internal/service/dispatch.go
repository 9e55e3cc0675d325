package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/gateway"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/repository"
	"go.uber.org/zap"
)

// DispatchService hands approved payouts to the processor bridge and feeds
// results back through the idempotent outcome hook. Dispatch happens outside
// any held transaction; only the claim (PENDING -> PROCESSING) is
// transactional.
type DispatchService struct {
	store     QueryStore
	processor gateway.Processor
	outcomes  *OutcomeService
}

func NewDispatchService(store QueryStore, processor gateway.Processor, outcomes *OutcomeService) *DispatchService {
	return &DispatchService{
		store:     store,
		processor: processor,
		outcomes:  outcomes,
	}
}

// ProcessBatch claims up to batchSize dispatchable payouts with SKIP LOCKED,
// then calls the processor for each and reports the outcome.
func (s *DispatchService) ProcessBatch(ctx context.Context, batchSize int32) error {
	claimed, err := s.claim(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, payout := range claimed {
		if err := ctx.Err(); err != nil {
			return err
		}

		ref, err := s.processor.SendPayout(ctx, payout.CreatorID.String(), payout.AmountCents, payout.Currency)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Left in PROCESSING; the processor's own report (or an
				// operator) resolves it. Never mark FAILED on a timeout we
				// cannot distinguish from a slow success.
				zap.L().Warn("processor call canceled mid-dispatch",
					zap.String("payout_id", payout.ID.String()))
				return err
			}
			reason := err.Error()
			if _, repErr := s.outcomes.ReportOutcome(ctx, ReportOutcomeParams{
				PayoutID: payout.ID,
				Status:   domain.PayoutStatusFailed,
				Notes:    &reason,
			}); repErr != nil {
				zap.L().Error("failed to record payout failure",
					zap.Error(repErr), zap.String("payout_id", payout.ID.String()))
			}
			continue
		}

		if _, err := s.outcomes.ReportOutcome(ctx, ReportOutcomeParams{
			PayoutID:  payout.ID,
			Status:    domain.PayoutStatusCompleted,
			PaymentID: &ref,
		}); err != nil {
			zap.L().Error("payout sent but completion not recorded",
				zap.Error(err),
				zap.String("payout_id", payout.ID.String()),
				zap.String("payment_id", ref))
		}
	}
	return nil
}

func (s *DispatchService) claim(ctx context.Context, batchSize int32) ([]models.Payout, error) {
	var claimed []models.Payout
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		payouts, err := qtx.ClaimPendingPayouts(ctx, batchSize)
		if err != nil {
			return err
		}
		for i := range payouts {
			if err := s.outcomes.MarkDispatched(ctx, qtx, &payouts[i]); err != nil {
				return fmt.Errorf("mark payout dispatched: %w", err)
			}
			payouts[i].Status = domain.PayoutStatusProcessing
		}
		claimed = payouts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
