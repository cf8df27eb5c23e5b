package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/commerce-dashboard-api/internal/models"
)

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// runningTotals backs /metrics/summary without reading the Prometheus registry.
type runningTotals struct {
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	requests    atomic.Uint64
	requestNs   atomic.Uint64
	queries     atomic.Uint64
	queryNs     atomic.Uint64
}

// MetricsService is the single instrumentation sink for the API. Every method
// is safe on a nil receiver so callers can run without metrics.
type MetricsService struct {
	handler http.Handler
	totals  runningTotals

	httpLatency    *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	cacheLookupDur prometheus.Histogram
	cacheWriteDur  prometheus.Histogram
	cacheRatio     prometheus.Gauge
	queryLatency   *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

func NewMetricsService() *MetricsService {
	m := &MetricsService{
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler latency by route template and status",
			Buckets: latencyBuckets,
		}, []string{"method", "path", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route template and status",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Dashboard cache lookups split by result",
		}, []string{"result"}),
		cacheLookupDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_lookup_seconds",
			Help:    "Time spent reading the dashboard cache",
			Buckets: latencyBuckets,
		}),
		cacheWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Time spent writing the dashboard cache",
			Buckets: latencyBuckets,
		}),
		cacheRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Share of cache lookups served from the cache",
		}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Aggregation query latency by query name",
			Buckets: latencyBuckets,
		}, []string{"query"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication flow outcomes",
		}, []string{"event", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"path"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refresh_sessions_purged_total",
			Help: "Expired refresh sessions removed by the janitor",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.httpLatency, m.httpRequests,
		m.cacheLookups, m.cacheLookupDur, m.cacheWriteDur, m.cacheRatio,
		m.queryLatency, m.authEvents, m.rateLimited, m.sessionsPurged,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "goroutines_total",
			Help: "Goroutines currently alive",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the text exposition format, or 503 when metrics are off.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.totals.requests.Add(1)
	m.totals.requestNs.Add(uint64(duration))
}

// RecordCacheOperation counts one cache read and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLookupDur.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.totals.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.totals.cacheMisses.Add(1)
	}
	m.cacheRatio.Set(hitRatio(m.totals.cacheHits.Load(), m.totals.cacheMisses.Load()))
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWriteDur.Observe(duration.Seconds())
}

// ObserveDBQuery times one named aggregation query.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryLatency.WithLabelValues(label).Observe(duration.Seconds())
	m.totals.queries.Add(1)
	m.totals.queryNs.Add(uint64(duration))
}

// RecordAuthEvent counts one signup, login, refresh or logout outcome.
func (m *MetricsService) RecordAuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

func (m *MetricsService) RecordRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}

func (m *MetricsService) RecordSessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsPurged.Add(float64(n))
}

// Snapshot summarises the running totals for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.totals.cacheHits.Load(), m.totals.cacheMisses.Load()
	requests, queries := m.totals.requests.Load(), m.totals.queries.Load()

	return models.SystemMetrics{
		CacheHitRatio:            hitRatio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: meanMillis(m.totals.requestNs.Load(), requests),
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: meanMillis(m.totals.queryNs.Load(), queries),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func hitRatio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func meanMillis(totalNs, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNs) / float64(count) / float64(time.Millisecond)
}
