package service

import (
	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
)

// EligibilityReason identifies one failed payout precondition.
type EligibilityReason string

const (
	ReasonEmailNotVerified          EligibilityReason = "email_not_verified"
	ReasonIdentityNotVerified       EligibilityReason = "identity_not_verified"
	ReasonPayoutMethodNotConfigured EligibilityReason = "payout_method_not_configured"
)

// EligibilityResult is the outcome of the precondition checks.
type EligibilityResult struct {
	OK           bool
	FailedChecks []EligibilityReason
}

// CheckEligibility verifies the payout preconditions against the account
// snapshot passed in. No I/O; every failing check is collected so the caller
// can present the complete remediation list.
func CheckEligibility(acc *models.CreatorAccount) EligibilityResult {
	var failed []EligibilityReason
	if !acc.EmailVerified {
		failed = append(failed, ReasonEmailNotVerified)
	}
	if acc.IdentityVerification != domain.KYCVerified {
		failed = append(failed, ReasonIdentityNotVerified)
	}
	if !acc.PayoutMethodConfigured {
		failed = append(failed, ReasonPayoutMethodNotConfigured)
	}
	return EligibilityResult{
		OK:           len(failed) == 0,
		FailedChecks: failed,
	}
}
