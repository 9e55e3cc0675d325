package service

import (
	"errors"
	"fmt"

	"github.com/fanvault/creator-payouts/internal/domain"
)

var (
	ErrCreatorNotFound    = errors.New("creator account not found")
	ErrRequestNotFound    = errors.New("payout request not found")
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrDuplicatePending   = errors.New("creator already has a pending payout request")
	ErrInvalidState       = errors.New("payout request is not in a reviewable state")
	ErrNotesRequired      = errors.New("review notes are required when rejecting a request")
	ErrUnsupportedOutcome = errors.New("payout outcome must be COMPLETED or FAILED")
	ErrTooManyAttempts    = errors.New("too many payout request attempts, try again later")

	// ErrContention marks transient lock-wait failures. The whole call is
	// safe to retry from scratch; nothing was committed.
	ErrContention = errors.New("payout storage contention")
)

// InvalidAmountError is returned when the requested amount is below the
// payout minimum. Carries both figures so callers can render them.
type InvalidAmountError struct {
	RequestedCents int64
	MinimumCents   int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("requested amount %s is below the minimum payout of %s",
		domain.NewMoney(e.RequestedCents, "").ToDecimal().StringFixed(2),
		domain.NewMoney(e.MinimumCents, "").ToDecimal().StringFixed(2))
}

// InsufficientBalanceError reports the concrete available-vs-requested gap.
type InsufficientBalanceError struct {
	AvailableCents int64
	RequestedCents int64
	Currency       string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s",
		domain.NewMoney(e.AvailableCents, e.Currency),
		domain.NewMoney(e.RequestedCents, e.Currency))
}

// NotEligibleError lists every failed precondition so the creator sees the
// complete remediation list, not just the first failure.
type NotEligibleError struct {
	FailedChecks []EligibilityReason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("creator is not eligible for payouts: %v", e.FailedChecks)
}
