package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/google/uuid"
)

const payoutRequestColumns = `id, creator_id, requested_cents, currency, status, bonus_applied,
	email_verified_at, kyc_verified_at, bank_setup_at,
	reviewed_by, reviewed_at, review_notes, payout_id, created_at, updated_at`

func scanPayoutRequest(row interface{ Scan(...any) error }) (*models.PayoutRequest, error) {
	pr := &models.PayoutRequest{}
	err := row.Scan(
		&pr.ID, &pr.CreatorID, &pr.RequestedCents, &pr.Currency, &pr.Status, &pr.BonusApplied,
		&pr.EmailVerifiedAt, &pr.KYCVerifiedAt, &pr.BankSetupAt,
		&pr.ReviewedBy, &pr.ReviewedAt, &pr.ReviewNotes, &pr.PayoutID, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// SumReservedRequests returns the total amount claimed by non-terminal
// requests for a creator. This is the double-booking guard: in-flight
// reservations come off the spendable balance before any payout exists.
func (q *Queries) SumReservedRequests(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(requested_cents), 0)
		FROM payout_requests
		WHERE creator_id = $1 AND status = ANY($2)
	`, creatorID, domain.ReservedRequestStatuses).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum reserved requests: %w", err)
	}
	return total, nil
}

// HasPendingRequest reports whether the creator already has a PENDING request.
func (q *Queries) HasPendingRequest(ctx context.Context, creatorID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payout_requests WHERE creator_id = $1 AND status = $2
		)
	`, creatorID, domain.RequestStatusPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// InsertPayoutRequest persists a new PENDING request with its verification
// snapshots. The partial unique index on (creator_id) WHERE status='PENDING'
// is the database backstop against duplicate-PENDING races.
func (q *Queries) InsertPayoutRequest(ctx context.Context, pr *models.PayoutRequest) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO payout_requests (
			id, creator_id, requested_cents, currency, status, bonus_applied,
			email_verified_at, kyc_verified_at, bank_setup_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`,
		pr.ID, pr.CreatorID, pr.RequestedCents, pr.Currency, pr.Status, pr.BonusApplied,
		pr.EmailVerifiedAt, pr.KYCVerifiedAt, pr.BankSetupAt,
	).Scan(&pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// GetPayoutRequest loads a request without locking.
func (q *Queries) GetPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM payout_requests WHERE id = $1`, payoutRequestColumns)
	return scanPayoutRequest(q.db.QueryRow(ctx, query, id))
}

// GetPayoutRequestForUpdate loads and row-locks a request for a state
// transition.
func (q *Queries) GetPayoutRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM payout_requests WHERE id = $1 FOR UPDATE`, payoutRequestColumns)
	return scanPayoutRequest(q.db.QueryRow(ctx, query, id))
}

// ListPayoutRequestsByCreator returns a creator's requests, newest first.
func (q *Queries) ListPayoutRequestsByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int32) ([]models.PayoutRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payout_requests
		WHERE creator_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, payoutRequestColumns)
	rows, err := q.db.Query(ctx, query, creatorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payout requests: %w", err)
	}
	defer rows.Close()

	var out []models.PayoutRequest
	for rows.Next() {
		pr, err := scanPayoutRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout request: %w", err)
		}
		out = append(out, *pr)
	}
	return out, rows.Err()
}

// ReviewPayoutRequestParams carries a reviewer decision.
type ReviewPayoutRequestParams struct {
	ID         uuid.UUID
	Status     string
	ReviewedBy uuid.UUID
	ReviewedAt time.Time
	Notes      *string
	PayoutID   *uuid.UUID
}

// ReviewPayoutRequest applies an approve/reject transition. The status guard
// in the WHERE clause means a request that already left PENDING affects zero
// rows, which callers treat as an invalid-state conflict.
func (q *Queries) ReviewPayoutRequest(ctx context.Context, arg ReviewPayoutRequestParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE payout_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5,
			payout_id = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
	`, arg.ID, arg.Status, arg.ReviewedBy, arg.ReviewedAt, arg.Notes, arg.PayoutID, domain.RequestStatusPending)
	if err != nil {
		return 0, fmt.Errorf("review payout request: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdatePayoutRequestStatus moves a request between post-approval states
// (APPROVED -> PROCESSING -> COMPLETED/FAILED) as the linked payout advances.
func (q *Queries) UpdatePayoutRequestStatus(ctx context.Context, id uuid.UUID, status string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE payout_requests SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return 0, fmt.Errorf("update payout request status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountApprovedRequestsWithoutPayout counts requests that claim to be past
// approval but have no linked payout row. Always zero when the approval
// transaction invariant holds.
func (q *Queries) CountApprovedRequestsWithoutPayout(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM payout_requests pr
		WHERE pr.status IN ($1, $2, $3, $4) AND pr.payout_id IS NULL
	`, domain.RequestStatusApproved, domain.RequestStatusProcessing,
		domain.RequestStatusCompleted, domain.RequestStatusFailed).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved requests without payout: %w", err)
	}
	return n, nil
}
