package service

import (
	"context"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
)

// BalanceService derives a creator's spendable balance from ledger facts.
// There is no stored balance column; every read recomputes from earnings,
// completed payouts and in-flight reservations.
type BalanceService struct {
	store QueryStore
}

func NewBalanceService(store QueryStore) *BalanceService {
	return &BalanceService{store: store}
}

// GetBalance computes the balance for display. This path takes no locks;
// callers that intend to write against the result must recompute inside a
// transaction holding the creator row lock (see PayoutRequestService).
func (s *BalanceService) GetBalance(ctx context.Context, creatorID uuid.UUID) (*models.Balance, error) {
	queries := s.store.Queries()
	acc, err := queries.GetCreatorAccount(ctx, creatorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("load creator account: %w", err)
	}
	return computeBalance(ctx, queries, acc)
}

// computeBalance is the single balance derivation used by both the display
// path and the transactional write path. When called as a write precondition
// the caller must already hold the creator row lock through q.
func computeBalance(ctx context.Context, q *repository.Queries, acc *models.CreatorAccount) (*models.Balance, error) {
	completed, err := q.SumCompletedPayouts(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	reserved, err := q.SumReservedRequests(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	available := acc.TotalEarningsCents - completed - reserved
	if available < 0 {
		available = 0
	}

	bal := &models.Balance{
		AvailableCents: available,
		ReservedCents:  reserved,
		Currency:       acc.PayoutCurrency,
	}

	if acc.WaitlistBonusCents > 0 && !acc.BonusWithdrawn {
		if acc.TotalPurchasesCount >= domain.BonusPurchaseThreshold {
			bal.AvailableCents += acc.WaitlistBonusCents
			bal.BonusApplied = true
		} else {
			// Below the sales threshold the bonus is informational only
			// and never part of spendable balance.
			bal.LockedBonusCents = acc.WaitlistBonusCents
		}
	}

	return bal, nil
}
