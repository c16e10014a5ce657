package service

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSchedulerCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordGeneration(TriggerAPI, 12, nil)
	m.RecordGeneration(TriggerRefresher, 0, errors.New("boom"))
	m.RecordConflicts(2)
	m.RecordConflicts(0)
	m.ObservePlan(3*time.Millisecond, []string{"SPLIT", "SPLIT", "NOT_ENOUGH_SLOTS"})
	m.RecordPreview("cache")
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/course-progress/:id/schedule", http.StatusOK, 20*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Generations)
	assert.Equal(t, uint64(1), snap.GenerationFailures)
	assert.Equal(t, uint64(12), snap.OccurrencesWritten)
	assert.Equal(t, uint64(2), snap.ConflictsDetected)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 20, snap.AverageRequestDurationMs, 0.001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `schedule_generations_total{outcome="error",trigger="refresher"} 1`)
	assert.Contains(t, string(body), `schedule_warnings_total{type="SPLIT"} 2`)
	assert.Contains(t, string(body), `schedule_previews_total{source="cache"} 1`)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService

	m.RecordGeneration(TriggerAPI, 1, nil)
	m.RecordPreview("stored")
	m.ObservePlan(time.Millisecond, nil)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
	assert.NoError(t, m.RegisterGauge("x", "y", func() float64 { return 0 }))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceRegisterGauge(t *testing.T) {
	m := NewMetricsService()
	require.NoError(t, m.RegisterGauge("jobs_in_flight", "Jobs currently queued or running", func() float64 { return 3 }))
	assert.Error(t, m.RegisterGauge("jobs_in_flight", "duplicate", func() float64 { return 0 }))
}
