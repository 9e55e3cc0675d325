package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPayoutWorkerStopJoinsLoop(t *testing.T) {
	w := NewPayoutWorker(nil).WithPollInterval(time.Hour)
	stop := w.Run(context.Background())

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the loop exited")
	}

	// The loop has fully exited once stop returns, so shared resources such
	// as the notification dispatcher can be torn down safely after it.
	require.NotPanics(t, stop)
}

func TestIntegrityWorkerStopJoinsLoop(t *testing.T) {
	// Cancel the context up front so the immediate startup run is skipped
	// before it can touch the nil service.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewIntegrityWorker(nil).WithInterval(time.Hour)
	stop := w.Run(ctx)

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the loop exited")
	}
}
