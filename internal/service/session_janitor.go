package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiredSessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionJanitor periodically removes refresh sessions past their expiry.
type SessionJanitor struct {
	store    expiredSessionStore
	interval time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionJanitor(store expiredSessionStore, interval time.Duration, metrics *MetricsService, logger *zap.Logger) *SessionJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionJanitor{store: store, interval: interval, metrics: metrics, logger: logger, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A non-positive interval disables the janitor.
func (j *SessionJanitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("session janitor disabled")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("session sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep deletes expired sessions once and returns how many were removed.
func (j *SessionJanitor) Sweep(ctx context.Context) (int64, error) {
	removed, err := j.store.DeleteExpired(ctx, j.now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		j.metrics.RecordSessionsPurged(removed)
		j.logger.Info("expired sessions removed", zap.Int64("count", removed))
	}
	return removed, nil
}
