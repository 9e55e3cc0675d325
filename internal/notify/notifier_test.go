package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{} // when non-nil, Publish waits on it
}

func (s *captureSink) Publish(_ context.Context, event Event) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) captured() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 8)

	d.Publish(context.Background(), Event{Type: EventPayoutRequested, Payload: map[string]any{"creator_id": "c1"}})
	d.Publish(context.Background(), Event{Type: EventPayoutCompleted})
	d.Close()

	events := sink.captured()
	require.Len(t, events, 2)
	assert.Equal(t, EventPayoutRequested, events[0].Type)
	assert.Equal(t, "c1", events[0].Payload["creator_id"])
	assert.Equal(t, EventPayoutCompleted, events[1].Type)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sink := &captureSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1)

	// First event is picked up by the drain goroutine and parks on the sink,
	// second fills the queue. Give the goroutine a moment to take the first.
	d.Publish(context.Background(), Event{Type: EventPayoutRequested})
	time.Sleep(50 * time.Millisecond)
	d.Publish(context.Background(), Event{Type: EventPayoutRequestApproved})

	// The queue is now full. This must return immediately, not block.
	done := make(chan struct{})
	go func() {
		d.Publish(context.Background(), Event{Type: EventPayoutFailed})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}

	close(sink.block)
	d.Close()

	events := sink.captured()
	require.Len(t, events, 2)
	assert.Equal(t, EventPayoutRequested, events[0].Type)
	assert.Equal(t, EventPayoutRequestApproved, events[1].Type)
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(&captureSink{}, 4)
	d.Close()
	assert.NotPanics(t, func() { d.Close() })
}

func TestDispatcherPublishAfterCloseDropsEvent(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, 4)
	d.Close()

	// A worker batch still in flight during shutdown can publish after the
	// dispatcher is closed; that must drop the event, never panic.
	assert.NotPanics(t, func() {
		d.Publish(context.Background(), Event{Type: EventPayoutCompleted})
	})
	assert.Empty(t, sink.captured())
}
