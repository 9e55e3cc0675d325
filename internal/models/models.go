package models

import (
	"time"

	"github.com/google/uuid"
)

// CreatorAccount aggregates the ledger facts and verification state for a
// single creator. Earnings are credited by the sales subsystem; the
// verification fields are owned by the identity and banking subsystems and
// are read-only here.
type CreatorAccount struct {
	ID                     uuid.UUID  `json:"id"`
	DisplayName            string     `json:"display_name"`
	Email                  string     `json:"email"`
	TotalEarningsCents     int64      `json:"total_earnings_cents"`
	TotalPurchasesCount    int64      `json:"total_purchases_count"`
	WaitlistBonusCents     int64      `json:"waitlist_bonus_cents"`
	BonusWithdrawn         bool       `json:"bonus_withdrawn"`
	EmailVerified          bool       `json:"email_verified"`
	EmailVerifiedAt        *time.Time `json:"email_verified_at,omitempty"`
	IdentityVerification   string     `json:"identity_verification_status"`
	KYCVerifiedAt          *time.Time `json:"kyc_verified_at,omitempty"`
	PayoutMethodConfigured bool       `json:"payout_method_configured"`
	BankSetupAt            *time.Time `json:"bank_setup_at,omitempty"`
	PayoutCurrency         string     `json:"payout_currency"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Balance is the derived spendable position of a creator. It is never
// stored; it is recomputed from the ledger on every read.
type Balance struct {
	AvailableCents   int64  `json:"available_cents"`
	ReservedCents    int64  `json:"reserved_cents"`
	BonusApplied     bool   `json:"bonus_applied"`
	LockedBonusCents int64  `json:"locked_bonus_cents"`
	Currency         string `json:"currency"`
}

// PayoutRequest is one withdrawal attempt. The verification timestamps are
// snapshots taken at creation time for the audit trail; they are never
// re-derived from the account.
type PayoutRequest struct {
	ID              uuid.UUID  `json:"id"`
	CreatorID       uuid.UUID  `json:"creator_id"`
	RequestedCents  int64      `json:"requested_cents"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	BonusApplied    bool       `json:"bonus_applied"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	KYCVerifiedAt   *time.Time `json:"kyc_verified_at,omitempty"`
	BankSetupAt     *time.Time `json:"bank_setup_at,omitempty"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes     *string    `json:"review_notes,omitempty"`
	PayoutID        *uuid.UUID `json:"payout_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Payout is the linked money-movement record, populated on read
	// projections once the request has been approved.
	Payout *Payout `json:"payout,omitempty"`
}

// Payout is a concrete, processor-facing money movement. Created exactly
// once when a request is approved; its status then evolves as the external
// processor reports progress.
type Payout struct {
	ID              uuid.UUID  `json:"id"`
	PayoutRequestID uuid.UUID  `json:"payout_request_id"`
	CreatorID       uuid.UUID  `json:"creator_id"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentID       *string    `json:"payment_id,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
