package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-planner-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

type cachePingerStub struct {
	enabled bool
	err     error
}

func (c cachePingerStub) Enabled() bool {
	return c.enabled
}

func (c cachePingerStub) Ping(ctx context.Context) error {
	return c.err
}

func newMetricsRouter(h *MetricsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", h.Prometheus)
	router.GET("/system/metrics", h.Summary)
	return router
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, pingerStub{}, cachePingerStub{enabled: true, err: errors.New("redis down")})
	w := serve(newMetricsRouter(h), http.MethodGet, "/ready", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestMetricsHandlerReadyDatabaseDown(t *testing.T) {
	h := NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}, nil)
	w := serve(newMetricsRouter(h), http.MethodGet, "/ready", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestMetricsHandlerPrometheusAndSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordGeneration(service.TriggerAPI, 4, nil)
	metrics.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	router := newMetricsRouter(NewMetricsHandler(metrics, nil, nil))

	w := serve(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "schedule_occurrences_written_total 4")

	w = serve(router, http.MethodGet, "/system/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data"`)

	w = serve(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerWithoutMetrics(t *testing.T) {
	w := serve(newMetricsRouter(NewMetricsHandler(nil, nil, nil)), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
