package service

import (
	"testing"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifiedAccount() *models.CreatorAccount {
	return &models.CreatorAccount{
		EmailVerified:          true,
		IdentityVerification:   domain.KYCVerified,
		PayoutMethodConfigured: true,
	}
}

func TestCheckEligibility(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(acc *models.CreatorAccount)
		failed []EligibilityReason
	}{
		{
			name:   "fully_verified",
			mutate: func(acc *models.CreatorAccount) {},
		},
		{
			name:   "email_not_verified",
			mutate: func(acc *models.CreatorAccount) { acc.EmailVerified = false },
			failed: []EligibilityReason{ReasonEmailNotVerified},
		},
		{
			name:   "kyc_in_progress",
			mutate: func(acc *models.CreatorAccount) { acc.IdentityVerification = domain.KYCInProgress },
			failed: []EligibilityReason{ReasonIdentityNotVerified},
		},
		{
			name:   "kyc_rejected",
			mutate: func(acc *models.CreatorAccount) { acc.IdentityVerification = domain.KYCRejected },
			failed: []EligibilityReason{ReasonIdentityNotVerified},
		},
		{
			name:   "no_payout_method",
			mutate: func(acc *models.CreatorAccount) { acc.PayoutMethodConfigured = false },
			failed: []EligibilityReason{ReasonPayoutMethodNotConfigured},
		},
		{
			name: "all_checks_fail",
			mutate: func(acc *models.CreatorAccount) {
				acc.EmailVerified = false
				acc.IdentityVerification = domain.KYCUnverified
				acc.PayoutMethodConfigured = false
			},
			failed: []EligibilityReason{
				ReasonEmailNotVerified,
				ReasonIdentityNotVerified,
				ReasonPayoutMethodNotConfigured,
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			acc := verifiedAccount()
			tc.mutate(acc)

			result := CheckEligibility(acc)
			if len(tc.failed) == 0 {
				require.True(t, result.OK)
				assert.Empty(t, result.FailedChecks)
				return
			}
			require.False(t, result.OK)
			// Every failing check is reported, not just the first.
			assert.Equal(t, tc.failed, result.FailedChecks)
		})
	}
}
