package service

import (
	"context"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/observability"
	"go.uber.org/zap"
)

// IntegrityService verifies the payout-ledger invariants that every write
// path is supposed to preserve. Violations mean a bug, not expected state;
// they are counted and logged loudly but never auto-repaired.
type IntegrityService struct {
	store QueryStore
}

func NewIntegrityService(store QueryStore) *IntegrityService {
	return &IntegrityService{store: store}
}

// Run checks that every payout has an approved-or-later request, every
// post-approval request has its payout, and no creator has been paid more
// than they ever earned.
func (s *IntegrityService) Run(ctx context.Context) error {
	queries := s.store.Queries()

	orphans, err := queries.CountPayoutsWithoutApprovedRequest(ctx)
	if err != nil {
		return fmt.Errorf("check payout linkage: %w", err)
	}
	if orphans > 0 {
		observability.IncrementIntegrityViolation("payout_without_approval")
		zap.L().Error("CRITICAL: payouts linked to unapproved requests", zap.Int64("count", orphans))
	}

	missing, err := queries.CountApprovedRequestsWithoutPayout(ctx)
	if err != nil {
		return fmt.Errorf("check request linkage: %w", err)
	}
	if missing > 0 {
		observability.IncrementIntegrityViolation("approval_without_payout")
		zap.L().Error("CRITICAL: approved requests without payout rows", zap.Int64("count", missing))
	}

	overdrawn, err := queries.ListOverdrawnCreators(ctx)
	if err != nil {
		return fmt.Errorf("check overdraw: %w", err)
	}
	for _, oc := range overdrawn {
		observability.IncrementIntegrityViolation("creator_overdrawn")
		zap.L().Error("CRITICAL: creator paid out more than earned",
			zap.String("creator_id", oc.CreatorID.String()),
			zap.Int64("earned_cents", oc.EarnedCents),
			zap.Int64("completed_cents", oc.CompletedCents),
		)
	}

	if orphans == 0 && missing == 0 && len(overdrawn) == 0 {
		zap.L().Info("payout ledger integrity verified")
	}
	return nil
}
