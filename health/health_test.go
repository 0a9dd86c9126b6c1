package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("transport", "connected")
	m.UpdateDegraded("fallback", "queue at 80%")

	s, ok := m.Get("transport")
	require.True(t, ok)
	assert.True(t, s.IsHealthy())
	assert.Equal(t, "transport", s.Component)
	assert.False(t, s.Timestamp.IsZero())

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"fallback", "transport"}, m.Components())

	m.Remove("fallback")
	assert.Equal(t, []string{"transport"}, m.Components())
}

func TestAggregateSeverityOrder(t *testing.T) {
	m := NewMonitor()
	assert.Equal(t, StatusHealthy, m.Aggregate("bridge").Status)

	m.UpdateHealthy("transport", "ok")
	assert.True(t, m.Aggregate("bridge").Healthy)

	m.UpdateDegraded("fallback", "filling up")
	agg := m.Aggregate("bridge")
	assert.Equal(t, StatusDegraded, agg.Status)
	assert.False(t, agg.Healthy)

	m.UpdateUnhealthy("nats", "connection lost")
	agg = m.Aggregate("bridge")
	assert.Equal(t, StatusUnhealthy, agg.Status)
	assert.Contains(t, agg.Message, "nats")
}

func TestHandlerStatusCodes(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("transport", "ok")

	rec := httptest.NewRecorder()
	m.Handler("bridge").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var rep report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "bridge", rep.System.Component)
	assert.Contains(t, rep.Subsystems, "transport")

	m.UpdateUnhealthy("transport", "down")
	rec = httptest.NewRecorder()
	m.Handler("bridge").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
