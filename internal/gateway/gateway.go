package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Processor is the payment-processor bridge. The engine hands it approved
// payouts and receives a processor reference; terminal status arrives later
// through the outcome report hook. The processor's wire protocol is not this
// engine's concern.
type Processor interface {
	// SendPayout instructs the processor to execute a transfer.
	// Returns the processor's payment reference.
	SendPayout(ctx context.Context, creatorID string, amountCents int64, currency string) (string, error)
}

// MockProcessor simulates the external processor for local development and
// tests: a short delay, a configurable failure rate, a fake reference.
type MockProcessor struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{FailureRate: 0.1}
}

func (p *MockProcessor) SendPayout(ctx context.Context, creatorID string, amountCents int64, currency string) (string, error) {
	delay := time.Duration(100+rand.Intn(400)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", fmt.Errorf("processor call canceled: %w", ctx.Err())
	}

	if rand.Float64() < p.FailureRate {
		return "", fmt.Errorf("processor temporarily unavailable")
	}

	return fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000)), nil
}
