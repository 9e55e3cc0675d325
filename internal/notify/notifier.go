package notify

import (
	"context"
	"sync"

	"github.com/fanvault/creator-payouts/internal/observability"
	"go.uber.org/zap"
)

// Event types emitted on payout state changes.
const (
	EventPayoutRequested       = "payout.requested"
	EventPayoutRequestApproved = "payout_request.approved"
	EventPayoutRequestRejected = "payout_request.rejected"
	EventPayoutCompleted       = "payout.completed"
	EventPayoutFailed          = "payout.failed"
)

// Event is one fire-and-forget notification.
type Event struct {
	Type    string
	Payload map[string]any
}

// Notifier accepts state-change events. Implementations must never block
// the caller for long and must never surface delivery failures.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// LogSink is the in-repo Notifier: it records the event in the structured
// log. Real delivery (email, dashboards) lives in the notification
// subsystem behind this interface.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, event Event) {
	s.logger.Info("notification dispatched",
		zap.String("event_type", event.Type),
		zap.Any("payload", event.Payload),
	)
}

// Dispatcher decorates a Notifier with a bounded queue and a single drain
// goroutine so a slow or failing sink can never block fund reservation.
// When the queue is full the event is dropped and counted, not waited on.
type Dispatcher struct {
	sink   Notifier
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the drain goroutine. Close must be called to stop it.
func NewDispatcher(sink Notifier, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sink:   sink,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go d.drain()
	return d
}

// Publish enqueues without blocking. The passed context bounds nothing here;
// delivery happens on the drain goroutine with its own background context.
// Publishing after Close drops the event; stragglers from worker batches
// still in flight during shutdown must not crash the process.
func (d *Dispatcher) Publish(_ context.Context, event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		observability.IncrementNotificationDropped(event.Type)
		zap.L().Warn("notification after shutdown dropped", zap.String("event_type", event.Type))
		return
	}
	select {
	case d.events <- event:
	default:
		observability.IncrementNotificationDropped(event.Type)
		zap.L().Warn("notification queue full, event dropped", zap.String("event_type", event.Type))
	}
}

// Close stops the drain goroutine after the queue empties. Safe to call
// more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) drain() {
	defer close(d.done)
	for event := range d.events {
		d.sink.Publish(context.Background(), event)
	}
}
