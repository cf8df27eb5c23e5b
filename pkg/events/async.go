package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/commerce-dashboard-api/pkg/jobs"
)

const publishTimeout = 5 * time.Second

// AsyncPublisher hands events to a worker queue so callers never wait on the broker.
type AsyncPublisher struct {
	next  Publisher
	queue *jobs.Queue
}

// NewAsyncPublisher wraps next with a retrying background queue. Call Start before Publish.
func NewAsyncPublisher(next Publisher, logger *zap.Logger) *AsyncPublisher {
	p := &AsyncPublisher{next: next}
	p.queue = jobs.NewQueue("events", p.deliver, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 256,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return p
}

func (p *AsyncPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Publish enqueues the event. It fails only when the queue is stopped or full.
func (p *AsyncPublisher) Publish(_ context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	return p.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    evt.Name,
		Payload: evt,
	})
}

// Close drains the workers and closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.queue.Stop()
	return p.next.Close()
}

func (p *AsyncPublisher) deliver(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(Event)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.next.Publish(ctx, evt)
}
