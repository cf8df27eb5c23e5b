package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshotAverages(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/kpis/summary", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/kpis/summary", http.StatusOK, 30*time.Millisecond)
	m.ObserveDBQuery("kpi_summary", 4*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.DBQueryCount)
	assert.InDelta(t, 4, snapshot.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
	assert.InDelta(t, 1.0/3.0, snapshot.CacheHitRatio, 0.001)
	assert.Positive(t, snapshot.Goroutines)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordAuthEvent("login", "success")
	m.RecordRateLimited("POST /auth/login")
	m.RecordSessionsPurged(3)
	m.RecordSessionsPurged(0)
	m.RecordCacheOperation(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `auth_events_total{event="login",outcome="success"} 1`)
	assert.Contains(t, body, `rate_limited_requests_total{path="POST /auth/login"} 1`)
	assert.Contains(t, body, "refresh_sessions_purged_total 3")
	assert.Contains(t, body, `cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, "cache_hit_ratio 1")
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordSessionsPurged(2)

	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
