package domain

// Policy constants for payout amounts and abuse limits.
const (
	// MinimumPayoutCents is the smallest amount a creator may withdraw.
	MinimumPayoutCents int64 = 50_00

	// BonusPurchaseThreshold is the sales count at which the waitlist
	// bonus unlocks into spendable balance.
	BonusPurchaseThreshold int64 = 5

	// MaxRequestAttemptsPerHour bounds payout-request creation attempts
	// per creator. Advisory only; the transactional checks remain the
	// correctness mechanism.
	MaxRequestAttemptsPerHour = 3
)

// Identity verification statuses. Owned by the identity subsystem and
// read-only for this engine.
const (
	KYCUnverified = "UNVERIFIED"
	KYCInProgress = "IN_PROGRESS"
	KYCVerified   = "VERIFIED"
	KYCRejected   = "REJECTED"
	KYCExpired    = "EXPIRED"
)

// Payout request statuses.
const (
	RequestStatusPending    = "PENDING"
	RequestStatusApproved   = "APPROVED"
	RequestStatusProcessing = "PROCESSING"
	RequestStatusCompleted  = "COMPLETED"
	RequestStatusFailed     = "FAILED"
	RequestStatusRejected   = "REJECTED"
)

// Payout statuses.
const (
	PayoutStatusPending    = "PENDING"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusCompleted  = "COMPLETED"
	PayoutStatusFailed     = "FAILED"
)

// ReservedRequestStatuses are the request states whose amounts are held
// against a creator's spendable balance.
var ReservedRequestStatuses = []string{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusProcessing,
}

// IsTerminalPayoutStatus reports whether a payout status can no longer change.
func IsTerminalPayoutStatus(status string) bool {
	return status == PayoutStatusCompleted || status == PayoutStatusFailed
}
