package worker

import (
	"context"
	"sync"
	"time"

	"github.com/fanvault/creator-payouts/internal/observability"
	"github.com/fanvault/creator-payouts/internal/service"
	"go.uber.org/zap"
)

// PayoutWorker dispatches approved payouts to the processor in the background.
// It polls for pending payouts at regular intervals and processes them in
// batches. Safe for concurrent instances thanks to FOR UPDATE SKIP LOCKED.
type PayoutWorker struct {
	dispatch     *service.DispatchService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewPayoutWorker creates a new PayoutWorker instance.
func NewPayoutWorker(dispatch *service.DispatchService) *PayoutWorker {
	return &PayoutWorker{
		dispatch:     dispatch,
		pollInterval: 10 * time.Second,
		batchSize:    10,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *PayoutWorker) WithPollInterval(interval time.Duration) *PayoutWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize sets how many payouts are claimed per poll.
func (w *PayoutWorker) WithBatchSize(size int32) *PayoutWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and runs the dispatch loop until Stop is called or the
// context is canceled.
func (w *PayoutWorker) Start(ctx context.Context) {
	zap.L().Info("payout worker starting",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int32("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("payout worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("payout worker stop signal received")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *PayoutWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function. The
// stop function waits for the loop to exit, including any batch already in
// flight, so callers can tear down shared resources after it returns.
func (w *PayoutWorker) Run(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return func() {
		w.Stop()
		<-done
	}
}

// ProcessOnce dispatches a single batch immediately. Useful for testing
// or manual triggering.
func (w *PayoutWorker) ProcessOnce(ctx context.Context) error {
	return w.dispatch.ProcessBatch(ctx, w.batchSize)
}

func (w *PayoutWorker) processBatch(ctx context.Context) {
	if err := w.dispatch.ProcessBatch(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("payout_dispatch", "failed")
		zap.L().Error("payout dispatch batch failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("payout_dispatch", "success")
}
