package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceDerivation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewBalanceService(store)
	ctx := context.Background()

	// Earned 300.00, no payouts or reservations yet, no bonus.
	acc := seedCreator(t, db, 300_00, 0, 0)

	bal, err := svc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_00), bal.AvailableCents)
	assert.Equal(t, int64(0), bal.ReservedCents)
	assert.False(t, bal.BonusApplied)
	assert.Equal(t, "USD", bal.Currency)
}

func TestBalanceSubtractsCompletedAndReserved(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	balanceSvc := NewBalanceService(store)
	requestSvc := NewPayoutRequestService(store, notifier)
	reviewSvc := NewReviewService(store, notifier)
	outcomeSvc := NewOutcomeService(store, notifier)
	ctx := context.Background()

	acc := seedCreator(t, db, 500_00, 0, 0)

	// Complete a 100.00 payout end to end.
	first, err := requestSvc.Create(ctx, acc.ID, 100_00)
	require.NoError(t, err)
	approved, err := reviewSvc.Approve(ctx, first.ID, uuid.New(), "")
	require.NoError(t, err)
	_, err = outcomeSvc.ReportOutcome(ctx, ReportOutcomeParams{
		PayoutID: *approved.PayoutID,
		Status:   domain.PayoutStatusCompleted,
	})
	require.NoError(t, err)

	// Leave a second 150.00 request pending.
	_, err = requestSvc.Create(ctx, acc.ID, 150_00)
	require.NoError(t, err)

	bal, err := balanceSvc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250_00), bal.AvailableCents) // 500 - 100 completed - 150 reserved
	assert.Equal(t, int64(150_00), bal.ReservedCents)
}

func TestBalanceNeverNegative(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewBalanceService(store)
	ctx := context.Background()

	acc := seedCreator(t, db, 50_00, 0, 0)

	// Force an overdraw directly in SQL; the derivation must floor at zero
	// rather than report a negative balance.
	req := seedRawRequest(t, db, acc.ID, 80_00, domain.RequestStatusCompleted)
	seedRawPayout(t, db, req, acc.ID, 80_00, domain.PayoutStatusCompleted)

	bal, err := svc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.AvailableCents)
}

func TestBalanceBonusLockedBelowThreshold(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewBalanceService(store)
	ctx := context.Background()

	// 4 sales, below the threshold of 5: bonus stays locked.
	acc := seedCreator(t, db, 200_00, 4, 25_00)

	bal, err := svc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_00), bal.AvailableCents)
	assert.False(t, bal.BonusApplied)
	assert.Equal(t, int64(25_00), bal.LockedBonusCents)
}

func TestBalanceBonusAppliedAtThreshold(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewBalanceService(store)
	ctx := context.Background()

	acc := seedCreator(t, db, 200_00, 5, 25_00)

	bal, err := svc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(225_00), bal.AvailableCents)
	assert.True(t, bal.BonusApplied)
	assert.Equal(t, int64(0), bal.LockedBonusCents)
}

func TestBalanceBonusExcludedAfterWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewBalanceService(store)
	ctx := context.Background()

	acc := seedCreator(t, db, 200_00, 10, 25_00)
	_, err := db.Exec(ctx, "UPDATE creator_accounts SET bonus_withdrawn = TRUE WHERE id = $1", acc.ID)
	require.NoError(t, err)

	bal, err := svc.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_00), bal.AvailableCents)
	assert.False(t, bal.BonusApplied)
	assert.Equal(t, int64(0), bal.LockedBonusCents)
}

func TestBalanceUnknownCreator(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := NewBalanceService(repository.NewStore(db))

	_, err := svc.GetBalance(context.Background(), uuid.New())
	require.True(t, errors.Is(err, ErrCreatorNotFound))
}
