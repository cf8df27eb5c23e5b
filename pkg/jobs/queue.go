package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotStarted = errors.New("queue not started")
	ErrQueueFull  = errors.New("queue full")
	ErrStopped    = errors.New("queue stopped")
)

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  any
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

type QueueConfig struct {
	Workers    int
	BufferSize int
	// MaxRetries is the number of redeliveries after the first failure.
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 16
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Queue feeds a buffered channel to a fixed pool of goroutines. Enqueue never
// blocks; failed jobs are redelivered after RetryDelay until MaxRetries.
type Queue struct {
	name    string
	handle  Handler
	cfg     QueueConfig
	pending chan Job

	mu      sync.RWMutex
	runCtx  context.Context
	stop    context.CancelFunc
	running sync.WaitGroup
}

func NewQueue(name string, handle Handler, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:    name,
		handle:  handle,
		cfg:     cfg,
		pending: make(chan Job, cfg.BufferSize),
	}
}

// Start spawns the workers under ctx. Only the first call has an effect.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.runCtx != nil {
		return
	}
	q.runCtx, q.stop = context.WithCancel(ctx)
	q.running.Add(q.cfg.Workers)
	for n := 0; n < q.cfg.Workers; n++ {
		go q.consume(q.runCtx)
	}
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and pending retries, then waits for them to exit.
func (q *Queue) Stop() {
	q.mu.RLock()
	stop := q.stop
	q.mu.RUnlock()
	if stop == nil {
		return
	}
	stop()
	q.running.Wait()
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name))
}

func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	ctx := q.runCtx
	q.mu.RUnlock()
	if ctx == nil {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", q.name, ErrStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.pending <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) consume(ctx context.Context) {
	defer q.running.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.pending:
			err := q.handle(ctx, job)
			if err == nil {
				continue
			}
			job.Attempt++
			log := q.cfg.Logger.With(
				zap.String("queue", q.name),
				zap.String("job_id", job.ID),
				zap.String("type", job.Type),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
			if job.Attempt > q.cfg.MaxRetries {
				log.Error("job dropped after retries")
				continue
			}
			log.Warn("job failed, scheduling retry")
			q.running.Add(1)
			go q.redeliver(ctx, job)
		}
	}
}

func (q *Queue) redeliver(ctx context.Context, job Job) {
	defer q.running.Done()
	select {
	case <-ctx.Done():
	case <-time.After(q.cfg.RetryDelay):
		if err := q.Enqueue(job); err != nil {
			q.cfg.Logger.Error("job requeue failed", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
