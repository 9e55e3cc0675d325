package repository

import (
	"context"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/google/uuid"
)

const creatorAccountColumns = `id, display_name, email, total_earnings_cents, total_purchases_count,
	waitlist_bonus_cents, bonus_withdrawn, email_verified, email_verified_at,
	identity_verification_status, kyc_verified_at, payout_method_configured, bank_setup_at,
	payout_currency, created_at, updated_at`

func scanCreatorAccount(row interface{ Scan(...any) error }) (*models.CreatorAccount, error) {
	acc := &models.CreatorAccount{}
	err := row.Scan(
		&acc.ID, &acc.DisplayName, &acc.Email, &acc.TotalEarningsCents, &acc.TotalPurchasesCount,
		&acc.WaitlistBonusCents, &acc.BonusWithdrawn, &acc.EmailVerified, &acc.EmailVerifiedAt,
		&acc.IdentityVerification, &acc.KYCVerifiedAt, &acc.PayoutMethodConfigured, &acc.BankSetupAt,
		&acc.PayoutCurrency, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetCreatorAccount loads a creator account without locking. Safe for
// display reads only; writers must use GetCreatorAccountForUpdate.
func (q *Queries) GetCreatorAccount(ctx context.Context, id uuid.UUID) (*models.CreatorAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM creator_accounts WHERE id = $1`, creatorAccountColumns)
	return scanCreatorAccount(q.db.QueryRow(ctx, query, id))
}

// GetCreatorAccountForUpdate loads and row-locks a creator account. The lock
// serializes balance computation against concurrent reservations and must be
// held until the surrounding transaction commits.
func (q *Queries) GetCreatorAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.CreatorAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM creator_accounts WHERE id = $1 FOR UPDATE`, creatorAccountColumns)
	return scanCreatorAccount(q.db.QueryRow(ctx, query, id))
}

// MarkBonusWithdrawn flips the one-shot waitlist bonus flag. Returns the
// number of rows changed; 0 means the bonus was already consumed.
func (q *Queries) MarkBonusWithdrawn(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE creator_accounts
		SET bonus_withdrawn = TRUE, updated_at = NOW()
		WHERE id = $1 AND bonus_withdrawn = FALSE
	`, id)
	if err != nil {
		return 0, fmt.Errorf("mark bonus withdrawn: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateCreatorAccount inserts a creator account row. Account provisioning
// belongs to the registration subsystem; this exists for seeding and tests.
func (q *Queries) CreateCreatorAccount(ctx context.Context, acc *models.CreatorAccount) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO creator_accounts (
			id, display_name, email, total_earnings_cents, total_purchases_count,
			waitlist_bonus_cents, bonus_withdrawn, email_verified, email_verified_at,
			identity_verification_status, kyc_verified_at, payout_method_configured, bank_setup_at,
			payout_currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING created_at, updated_at
	`,
		acc.ID, acc.DisplayName, acc.Email, acc.TotalEarningsCents, acc.TotalPurchasesCount,
		acc.WaitlistBonusCents, acc.BonusWithdrawn, acc.EmailVerified, acc.EmailVerifiedAt,
		acc.IdentityVerification, acc.KYCVerifiedAt, acc.PayoutMethodConfigured, acc.BankSetupAt,
		acc.PayoutCurrency,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create creator account: %w", err)
	}
	return nil
}
