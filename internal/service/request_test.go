package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fanvault/creator-payouts/internal/domain"
	"github.com/fanvault/creator-payouts/internal/notify"
	"github.com/fanvault/creator-payouts/internal/quota"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestBelowMinimum(t *testing.T) {
	// Pure validation path; no DB access happens before the minimum check.
	svc := NewPayoutRequestService(nil, &recordingNotifier{})

	_, err := svc.Create(context.Background(), uuid.New(), 49_99)

	var amountErr *InvalidAmountError
	require.True(t, errors.As(err, &amountErr))
	assert.Equal(t, int64(49_99), amountErr.RequestedCents)
	assert.Equal(t, domain.MinimumPayoutCents, amountErr.MinimumCents)
}

// countingRedis backs the attempt limiter in-memory for quota tests.
type countingRedis struct {
	redis.Cmdable
	mu     sync.Mutex
	counts map[string]int64
}

func (c *countingRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[key]++
	cmd := redis.NewIntCmd(ctx, "incr", key)
	cmd.SetVal(c.counts[key])
	return cmd
}

func (c *countingRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	cmd.SetVal(true)
	return cmd
}

func TestCreateRequestQuotaCountsRejectedAttempts(t *testing.T) {
	limiter := quota.NewLimiter(&countingRedis{}, 1, time.Hour)
	svc := NewPayoutRequestService(nil, &recordingNotifier{}).WithQuota(limiter)
	creatorID := uuid.New()

	// A below-minimum attempt fails validation but still consumes quota.
	_, err := svc.Create(context.Background(), creatorID, 10_00)
	var amountErr *InvalidAmountError
	require.True(t, errors.As(err, &amountErr))

	_, err = svc.Create(context.Background(), creatorID, 100_00)
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestCreateRequestSuccess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	svc := NewPayoutRequestService(store, notifier)
	ctx := context.Background()

	acc := seedCreator(t, db, 300_00, 0, 0)

	request, err := svc.Create(ctx, acc.ID, 120_00)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, request.Status)
	assert.Equal(t, int64(120_00), request.RequestedCents)
	assert.Equal(t, "USD", request.Currency)
	assert.False(t, request.BonusApplied)

	// Verification snapshots are captured at creation time.
	require.NotNil(t, request.EmailVerifiedAt)
	require.NotNil(t, request.KYCVerifiedAt)
	require.NotNil(t, request.BankSetupAt)

	// The reservation is immediately visible in the derived balance.
	bal, err := NewBalanceService(store).GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(180_00), bal.AvailableCents)
	assert.Equal(t, int64(120_00), bal.ReservedCents)

	// An audit row and a notification were produced.
	var auditCount int
	require.NoError(t, db.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE entity_type = 'payout_request' AND entity_id = $1",
		request.ID).Scan(&auditCount))
	assert.Equal(t, 1, auditCount)
	assert.Len(t, notifier.byType(notify.EventPayoutRequested), 1)
}

func TestCreateRequestNotEligible(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	acc := seedCreator(t, db, 300_00, 0, 0)
	_, err := db.Exec(ctx, `
		UPDATE creator_accounts
		SET email_verified = FALSE, payout_method_configured = FALSE
		WHERE id = $1
	`, acc.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, acc.ID, 100_00)

	var eligErr *NotEligibleError
	require.True(t, errors.As(err, &eligErr))
	assert.Equal(t, []EligibilityReason{
		ReasonEmailNotVerified,
		ReasonPayoutMethodNotConfigured,
	}, eligErr.FailedChecks)

	// Nothing was written.
	var n int
	require.NoError(t, db.QueryRow(ctx,
		"SELECT COUNT(*) FROM payout_requests WHERE creator_id = $1", acc.ID).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestCreateRequestInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	acc := seedCreator(t, db, 80_00, 0, 0)

	_, err := svc.Create(ctx, acc.ID, 100_00)

	var balErr *InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, int64(80_00), balErr.AvailableCents)
	assert.Equal(t, int64(100_00), balErr.RequestedCents)
}

func TestCreateRequestDuplicatePending(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	acc := seedCreator(t, db, 500_00, 0, 0)

	_, err := svc.Create(ctx, acc.ID, 100_00)
	require.NoError(t, err)

	_, err = svc.Create(ctx, acc.ID, 50_00)
	require.True(t, errors.Is(err, ErrDuplicatePending))
}

func TestCreateRequestAfterRejectionSucceeds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	requestSvc := NewPayoutRequestService(store, notifier)
	reviewSvc := NewReviewService(store, notifier)
	ctx := context.Background()

	acc := seedCreator(t, db, 200_00, 0, 0)

	first, err := requestSvc.Create(ctx, acc.ID, 150_00)
	require.NoError(t, err)
	_, err = reviewSvc.Reject(ctx, first.ID, uuid.New(), "bank details look wrong")
	require.NoError(t, err)

	// Rejection released the reservation, so the full amount is spendable again.
	second, err := requestSvc.Create(ctx, acc.ID, 200_00)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, second.Status)
}

func TestCreateRequestConsumesBonus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	// 100.00 earned plus 25.00 unlocked bonus.
	acc := seedCreator(t, db, 100_00, 8, 25_00)

	// 110.00 needs the bonus to cover it, so bonus_applied is snapshotted.
	request, err := svc.Create(ctx, acc.ID, 110_00)
	require.NoError(t, err)
	assert.True(t, request.BonusApplied)
}

func TestCreateRequestWithinEarningsLeavesBonus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	acc := seedCreator(t, db, 100_00, 8, 25_00)

	// 90.00 is covered by earnings alone; the bonus is not consumed.
	request, err := svc.Create(ctx, acc.ID, 90_00)
	require.NoError(t, err)
	assert.False(t, request.BonusApplied)
}

func TestCreateRequestConcurrentDoubleSpend(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewPayoutRequestService(store, &recordingNotifier{})
	ctx := context.Background()

	// Balance covers either request alone but not both together.
	acc := seedCreator(t, db, 100_00, 0, 0)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Create(ctx, acc.ID, 60_00)
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var balErr *InsufficientBalanceError
		if errors.Is(err, ErrDuplicatePending) || errors.As(err, &balErr) {
			conflicts++
		} else {
			t.Fatalf("unexpected error from concurrent create: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one of the racing requests must win")
	assert.Equal(t, 1, conflicts)

	// The committed state reserves exactly one request's amount.
	var reserved int64
	require.NoError(t, db.QueryRow(ctx, `
		SELECT COALESCE(SUM(requested_cents), 0) FROM payout_requests
		WHERE creator_id = $1 AND status = 'PENDING'
	`, acc.ID).Scan(&reserved))
	assert.Equal(t, int64(60_00), reserved)
}

func TestGetRequestIncludesPayout(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	requestSvc := NewPayoutRequestService(store, notifier)
	reviewSvc := NewReviewService(store, notifier)
	ctx := context.Background()

	acc := seedCreator(t, db, 300_00, 0, 0)
	created, err := requestSvc.Create(ctx, acc.ID, 100_00)
	require.NoError(t, err)
	_, err = reviewSvc.Approve(ctx, created.ID, uuid.New(), "")
	require.NoError(t, err)

	got, err := requestSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, got.Status)
	require.NotNil(t, got.Payout)
	assert.Equal(t, int64(100_00), got.Payout.AmountCents)
}

func TestListRequestsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	requestSvc := NewPayoutRequestService(store, notifier)
	reviewSvc := NewReviewService(store, notifier)
	ctx := context.Background()

	acc := seedCreator(t, db, 1_000_00, 0, 0)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := requestSvc.Create(ctx, acc.ID, 100_00)
		require.NoError(t, err)
		_, err = reviewSvc.Reject(ctx, created.ID, uuid.New(), "cycling for test")
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	requests, err := requestSvc.List(ctx, acc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, ids[2], requests[0].ID)

	page, err := requestSvc.List(ctx, acc.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestGetRequestNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := NewPayoutRequestService(repository.NewStore(db), &recordingNotifier{})

	_, err := svc.Get(context.Background(), uuid.New())
	require.True(t, errors.Is(err, ErrRequestNotFound))
}
