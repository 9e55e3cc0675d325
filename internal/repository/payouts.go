package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/google/uuid"
)

const payoutColumns = `id, payout_request_id, creator_id, amount_cents, currency, status,
	payment_method, payment_id, processed_at, notes, created_at, updated_at`

func scanPayout(row interface{ Scan(...any) error }) (*models.Payout, error) {
	p := &models.Payout{}
	err := row.Scan(
		&p.ID, &p.PayoutRequestID, &p.CreatorID, &p.AmountCents, &p.Currency, &p.Status,
		&p.PaymentMethod, &p.PaymentID, &p.ProcessedAt, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SumCompletedPayouts returns the lifetime total of funds that actually left
// the ledger for a creator.
func (q *Queries) SumCompletedPayouts(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payouts
		WHERE creator_id = $1 AND status = $2
	`, creatorID, domain.PayoutStatusCompleted).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum completed payouts: %w", err)
	}
	return total, nil
}

// InsertPayout persists the money-movement record created at approval time.
func (q *Queries) InsertPayout(ctx context.Context, p *models.Payout) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO payouts (
			id, payout_request_id, creator_id, amount_cents, currency, status,
			payment_method, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`,
		p.ID, p.PayoutRequestID, p.CreatorID, p.AmountCents, p.Currency, p.Status,
		p.PaymentMethod, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// GetPayout loads a payout without locking.
func (q *Queries) GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1`, payoutColumns)
	return scanPayout(q.db.QueryRow(ctx, query, id))
}

// GetPayoutForUpdate loads and row-locks a payout for a status transition.
func (q *Queries) GetPayoutForUpdate(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	query := fmt.Sprintf(`SELECT %s FROM payouts WHERE id = $1 FOR UPDATE`, payoutColumns)
	return scanPayout(q.db.QueryRow(ctx, query, id))
}

// ClaimPendingPayouts locks up to limit dispatchable payouts. SKIP LOCKED
// keeps concurrent worker instances from fighting over the same rows.
func (q *Queries) ClaimPendingPayouts(ctx context.Context, limit int32) ([]models.Payout, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payouts
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, payoutColumns)
	rows, err := q.db.Query(ctx, query, domain.PayoutStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending payouts: %w", err)
	}
	defer rows.Close()

	var out []models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePayoutStatusParams carries a payout status transition.
type UpdatePayoutStatusParams struct {
	ID          uuid.UUID
	Status      string
	PaymentID   *string
	Notes       *string
	ProcessedAt *time.Time
}

// UpdatePayoutStatus applies a payout status transition preserving any
// existing processor reference and notes when the caller passes nil.
func (q *Queries) UpdatePayoutStatus(ctx context.Context, arg UpdatePayoutStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE payouts
		SET status = $2,
			payment_id = COALESCE($3, payment_id),
			notes = COALESCE($4, notes),
			processed_at = COALESCE($5, processed_at),
			updated_at = NOW()
		WHERE id = $1
	`, arg.ID, arg.Status, arg.PaymentID, arg.Notes, arg.ProcessedAt)
	if err != nil {
		return 0, fmt.Errorf("update payout status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountPayoutsWithoutApprovedRequest counts payout rows whose linked request
// is still PENDING or was REJECTED. Always zero when the approval transaction
// invariant holds.
func (q *Queries) CountPayoutsWithoutApprovedRequest(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM payouts p
		JOIN payout_requests pr ON pr.id = p.payout_request_id
		WHERE pr.status IN ($1, $2)
	`, domain.RequestStatusPending, domain.RequestStatusRejected).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payouts without approved request: %w", err)
	}
	return n, nil
}

// OverdrawnCreator is a ledger integrity violation: more money completed out
// than the creator ever earned (bonus included).
type OverdrawnCreator struct {
	CreatorID      uuid.UUID
	EarnedCents    int64
	CompletedCents int64
}

// ListOverdrawnCreators returns creators whose completed payouts exceed
// lifetime earnings plus the waitlist bonus.
func (q *Queries) ListOverdrawnCreators(ctx context.Context) ([]OverdrawnCreator, error) {
	rows, err := q.db.Query(ctx, `
		SELECT ca.id,
			ca.total_earnings_cents + ca.waitlist_bonus_cents,
			COALESCE(SUM(p.amount_cents), 0)
		FROM creator_accounts ca
		JOIN payouts p ON p.creator_id = ca.id AND p.status = $1
		GROUP BY ca.id
		HAVING COALESCE(SUM(p.amount_cents), 0) > ca.total_earnings_cents + ca.waitlist_bonus_cents
	`, domain.PayoutStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list overdrawn creators: %w", err)
	}
	defer rows.Close()

	var out []OverdrawnCreator
	for rows.Next() {
		var oc OverdrawnCreator
		if err := rows.Scan(&oc.CreatorID, &oc.EarnedCents, &oc.CompletedCents); err != nil {
			return nil, fmt.Errorf("scan overdrawn creator: %w", err)
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}
