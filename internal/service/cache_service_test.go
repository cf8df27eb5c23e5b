package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/commerce-dashboard-api/pkg/errors"
)

// memoryCache is an in-process CacheRepository storing JSON like Redis does.
type memoryCache struct {
	items map[string][]byte
	ttls  map[string]time.Duration
	err   error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.err != nil {
		return m.err
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)

	var out []string
	assert.False(t, svc.Get(context.Background(), "dash:a", &out))

	svc.Set(context.Background(), "dash:a", []string{"x"}, 0)
	require.True(t, svc.Get(context.Background(), "dash:a", &out))
	assert.Equal(t, []string{"x"}, out)
	assert.Equal(t, 5*time.Minute, repo.ttls["dash:a"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.001)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	svc.Set(context.Background(), "dash:a", 1, 0)
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	var out int
	assert.False(t, nilSvc.Get(context.Background(), "dash:a", &out))
}
