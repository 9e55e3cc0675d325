package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/notify"
	"github.com/fanvault/creator-payouts/internal/observability"
	"github.com/fanvault/creator-payouts/internal/quota"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutRequestService owns the atomic "request a payout" operation and all
// read projections over payout requests. It is the only writer of new
// payout_requests rows.
type PayoutRequestService struct {
	store    QueryStore
	audit    *AuditService
	notifier notify.Notifier
	quota    *quota.Limiter
}

func NewPayoutRequestService(store QueryStore, notifier notify.Notifier) *PayoutRequestService {
	return &PayoutRequestService{
		store:    store,
		audit:    NewAuditService(),
		notifier: notifier,
	}
}

// WithQuota attaches the advisory per-creator attempt limiter.
func (s *PayoutRequestService) WithQuota(l *quota.Limiter) *PayoutRequestService {
	s.quota = l
	return s
}

// Create reserves funds by inserting a PENDING payout request.
//
// The balance check and the insert happen inside one transaction holding the
// creator row lock, so two concurrent calls cannot both observe sufficient
// balance and both commit reservations that together exceed it. The partial
// unique index on PENDING requests backstops the duplicate check at the
// database level.
func (s *PayoutRequestService) Create(ctx context.Context, creatorID uuid.UUID, amountCents int64) (*models.PayoutRequest, error) {
	// Every attempt counts against the quota, including ones rejected by
	// the validation below.
	if !s.quota.Allow(ctx, creatorID) {
		observability.IncrementPayoutRequestOutcome("rate_limited")
		return nil, ErrTooManyAttempts
	}

	if amountCents < domain.MinimumPayoutCents {
		observability.IncrementPayoutRequestOutcome("invalid_amount")
		return nil, &InvalidAmountError{RequestedCents: amountCents, MinimumCents: domain.MinimumPayoutCents}
	}

	request := &models.PayoutRequest{
		ID:             uuid.New(),
		CreatorID:      creatorID,
		RequestedCents: amountCents,
		Status:         domain.RequestStatusPending,
	}

	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		acc, err := qtx.GetCreatorAccountForUpdate(ctx, creatorID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCreatorNotFound
			}
			return fmt.Errorf("lock creator account: %w", err)
		}

		if elig := CheckEligibility(acc); !elig.OK {
			return &NotEligibleError{FailedChecks: elig.FailedChecks}
		}

		pending, err := qtx.HasPendingRequest(ctx, creatorID)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicatePending
		}

		bal, err := computeBalance(ctx, qtx, acc)
		if err != nil {
			return err
		}
		if amountCents > bal.AvailableCents {
			return &InsufficientBalanceError{
				AvailableCents: bal.AvailableCents,
				RequestedCents: amountCents,
				Currency:       acc.PayoutCurrency,
			}
		}

		request.Currency = acc.PayoutCurrency
		// The bonus flag is recorded only when the bonus is actually needed
		// to cover the amount; completing such a payout consumes the bonus.
		request.BonusApplied = bal.BonusApplied && amountCents > bal.AvailableCents-acc.WaitlistBonusCents
		request.EmailVerifiedAt = acc.EmailVerifiedAt
		request.KYCVerifiedAt = acc.KYCVerifiedAt
		request.BankSetupAt = acc.BankSetupAt

		if err := qtx.InsertPayoutRequest(ctx, request); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]any{
			"requested_cents": amountCents,
			"available_cents": bal.AvailableCents,
			"bonus_applied":   request.BonusApplied,
		})
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		return s.audit.Write(ctx, qtx, "payout_request", request.ID, &creatorID, "created", "", domain.RequestStatusPending, metadata)
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	observability.IncrementPayoutRequestOutcome("created")
	s.notifier.Publish(ctx, notify.Event{
		Type: notify.EventPayoutRequested,
		Payload: map[string]any{
			"request_id":      request.ID.String(),
			"creator_id":      creatorID.String(),
			"requested_cents": amountCents,
			"currency":        request.Currency,
		},
	})
	return request, nil
}

// mapTxError translates storage-level races into the typed conflict errors
// surfaced to callers.
func (s *PayoutRequestService) mapTxError(err error) error {
	switch {
	case repository.IsUniqueViolation(err):
		// A concurrent request slipped in between our check and insert;
		// the partial index caught it.
		observability.IncrementPayoutRequestOutcome("duplicate_pending")
		return ErrDuplicatePending
	case repository.IsLockTimeout(err):
		observability.IncrementPayoutRequestOutcome("contention")
		zap.L().Warn("payout request hit lock contention", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrContention, err)
	default:
		return err
	}
}

// Get returns one request, with the linked payout summary when it exists.
func (s *PayoutRequestService) Get(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	queries := s.store.Queries()
	pr, err := queries.GetPayoutRequest(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("load payout request: %w", err)
	}
	if pr.PayoutID != nil {
		payout, err := queries.GetPayout(ctx, *pr.PayoutID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, fmt.Errorf("load linked payout: %w", err)
		}
		pr.Payout = payout
	}
	return pr, nil
}

// List returns a creator's requests, newest first, with payout summaries.
func (s *PayoutRequestService) List(ctx context.Context, creatorID uuid.UUID, limit, offset int32) ([]models.PayoutRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	queries := s.store.Queries()
	requests, err := queries.ListPayoutRequestsByCreator(ctx, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].PayoutID == nil {
			continue
		}
		payout, err := queries.GetPayout(ctx, *requests[i].PayoutID)
		if err != nil {
			if repository.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("load linked payout: %w", err)
		}
		requests[i].Payout = payout
	}
	return requests, nil
}
