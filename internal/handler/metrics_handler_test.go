package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/commerce-dashboard-api/internal/service"
)

func TestReadyReportsEachCheck(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
		"skipped":  nil,
	})

	c, rec := getContext("/ready")
	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","redis":"connection refused"}}`, rec.Body.String())
}

func TestReadyWithoutFailures(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})

	c, rec := getContext("/ready")
	handler.Ready(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestHealthAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	handler := NewMetricsHandler(metrics, nil)

	c, rec := getContext("/health")
	handler.Health(c)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	c, rec = getContext("/metrics/summary")
	handler.Summary(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache_hit_ratio":0`)
}

func TestPrometheusUnavailableWithoutService(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)

	c, rec := getContext("/metrics")
	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
