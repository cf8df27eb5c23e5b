package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu       sync.Mutex
	failures int
	events   []Event
	closed   bool
	notify   chan struct{}
}

func (r *recordingPublisher) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	r.events = append(r.events, evt)
	r.notify <- struct{}{}
	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestAsyncPublisherDelivers(t *testing.T) {
	next := &recordingPublisher{notify: make(chan struct{}, 1)}
	pub := NewAsyncPublisher(next, zap.NewNop())
	pub.Start(context.Background())

	err := pub.Publish(context.Background(), Event{
		Name:    CustomerRegistered,
		Payload: CustomerRegisteredPayload{CustomerID: 7, Email: "owner@example.com"},
	})
	require.NoError(t, err)

	select {
	case <-next.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	require.NoError(t, pub.Close())

	require.Len(t, next.events, 1)
	assert.Equal(t, CustomerRegistered, next.events[0].Name)
	assert.False(t, next.events[0].OccurredAt.IsZero())
	assert.True(t, next.closed)
}

func TestAsyncPublisherRejectsBeforeStart(t *testing.T) {
	pub := NewAsyncPublisher(NoopPublisher{}, nil)

	assert.Error(t, pub.Publish(context.Background(), Event{Name: CustomerRegistered}))
}
