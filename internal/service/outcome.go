package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/fanvault/creator-payouts/internal/notify"
	"github.com/fanvault/creator-payouts/internal/observability"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutcomeService is the single mutation point through which the payment
// processor's terminal status reaches the ledger.
type OutcomeService struct {
	store    QueryStore
	audit    *AuditService
	notifier notify.Notifier
}

func NewOutcomeService(store QueryStore, notifier notify.Notifier) *OutcomeService {
	return &OutcomeService{
		store:    store,
		audit:    NewAuditService(),
		notifier: notifier,
	}
}

// ReportOutcomeParams carries a processor terminal-status report.
type ReportOutcomeParams struct {
	PayoutID  uuid.UUID
	Status    string // COMPLETED or FAILED
	PaymentID *string
	Notes     *string
}

// ReportOutcome applies a terminal status to a payout and its linked request
// in one transaction. Idempotent: a second report for an already-terminal
// payout is a no-op, not an error. Completing a payout whose request
// consumed the waitlist bonus flips the creator's bonus_withdrawn flag;
// that is the one place the bonus leaves the ledger.
func (s *OutcomeService) ReportOutcome(ctx context.Context, arg ReportOutcomeParams) (*models.Payout, error) {
	if !domain.IsTerminalPayoutStatus(arg.Status) {
		return nil, ErrUnsupportedOutcome
	}

	var (
		payout *models.Payout
		replay bool
	)
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		p, err := qtx.GetPayoutForUpdate(ctx, arg.PayoutID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPayoutNotFound
			}
			return fmt.Errorf("lock payout: %w", err)
		}
		if domain.IsTerminalPayoutStatus(p.Status) {
			payout = p
			replay = true
			return nil
		}

		now := time.Now()
		rows, err := qtx.UpdatePayoutStatus(ctx, repository.UpdatePayoutStatusParams{
			ID:          p.ID,
			Status:      arg.Status,
			PaymentID:   arg.PaymentID,
			Notes:       arg.Notes,
			ProcessedAt: &now,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "apply payout outcome"); err != nil {
			return err
		}

		rows, err = qtx.UpdatePayoutRequestStatus(ctx, p.PayoutRequestID, arg.Status)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "propagate outcome to request"); err != nil {
			return err
		}

		if arg.Status == domain.PayoutStatusCompleted {
			pr, err := qtx.GetPayoutRequest(ctx, p.PayoutRequestID)
			if err != nil {
				return fmt.Errorf("load request for bonus check: %w", err)
			}
			if pr.BonusApplied {
				if _, err := qtx.MarkBonusWithdrawn(ctx, p.CreatorID); err != nil {
					return err
				}
			}
		}

		metadata, err := json.Marshal(map[string]any{"payment_id": arg.PaymentID})
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		if err := s.audit.Write(ctx, qtx, "payout", p.ID, nil, "outcome_reported",
			p.Status, arg.Status, metadata); err != nil {
			return err
		}

		p.Status = arg.Status
		p.ProcessedAt = &now
		if arg.PaymentID != nil {
			p.PaymentID = arg.PaymentID
		}
		if arg.Notes != nil {
			p.Notes = arg.Notes
		}
		payout = p
		return nil
	})
	if err != nil {
		if repository.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrContention, err)
		}
		return nil, err
	}

	if replay {
		observability.IncrementOutcomeReport("replay")
		zap.L().Info("duplicate outcome report ignored",
			zap.String("payout_id", arg.PayoutID.String()),
			zap.String("status", payout.Status))
		return payout, nil
	}

	observability.IncrementOutcomeReport(arg.Status)
	eventType := notify.EventPayoutCompleted
	if arg.Status == domain.PayoutStatusFailed {
		eventType = notify.EventPayoutFailed
	}
	s.notifier.Publish(ctx, notify.Event{
		Type: eventType,
		Payload: map[string]any{
			"payout_id":  payout.ID.String(),
			"creator_id": payout.CreatorID.String(),
			"status":     payout.Status,
		},
	})
	return payout, nil
}

// MarkDispatched moves a claimed payout and its request to PROCESSING inside
// the caller's claim transaction. Used by the dispatch worker before handing
// the payout to the processor bridge.
func (s *OutcomeService) MarkDispatched(ctx context.Context, qtx *repository.Queries, p *models.Payout) error {
	rows, err := qtx.UpdatePayoutStatus(ctx, repository.UpdatePayoutStatusParams{
		ID:     p.ID,
		Status: domain.PayoutStatusProcessing,
	})
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "mark payout processing"); err != nil {
		return err
	}

	rows, err = qtx.UpdatePayoutRequestStatus(ctx, p.PayoutRequestID, domain.RequestStatusProcessing)
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "mark request processing"); err != nil {
		return err
	}

	return s.audit.Write(ctx, qtx, "payout", p.ID, nil, "dispatched",
		domain.PayoutStatusPending, domain.PayoutStatusProcessing, nil)
}
