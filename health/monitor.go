package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Monitor aggregates subsystem statuses.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update records the latest status for a subsystem
func (m *Monitor) Update(name string, status Status) {
	if status.Component == "" {
		status.Component = name
	}
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()
}

// UpdateHealthy records a healthy status
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, Healthy(name, message))
}

// UpdateDegraded records a degraded status
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, Degraded(name, message))
}

// UpdateUnhealthy records an unhealthy status
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, Unhealthy(name, message))
}

// Get returns the last status recorded for a subsystem
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[name]
	return s, ok
}

// GetAll returns a copy of every recorded status
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Status, len(m.statuses))
	for k, v := range m.statuses {
		out[k] = v
	}
	return out
}

// Remove drops a subsystem from the monitor
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	delete(m.statuses, name)
	m.mu.Unlock()
}

// Components lists the monitored subsystem names, sorted
func (m *Monitor) Components() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.statuses))
	for k := range m.statuses {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Aggregate folds all statuses into one: unhealthy dominates, then
// degraded, and an empty monitor reports healthy.
func (m *Monitor) Aggregate(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	worst := StatusHealthy
	message := "all subsystems healthy"
	for _, s := range m.statuses {
		switch {
		case s.Status == StatusUnhealthy:
			worst = StatusUnhealthy
			message = s.Component + ": " + s.Message
		case s.Status == StatusDegraded && worst == StatusHealthy:
			worst = StatusDegraded
			message = s.Component + ": " + s.Message
		}
	}
	return Status{
		Component: systemName,
		Healthy:   worst == StatusHealthy,
		Status:    worst,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// report is the JSON shape served by the handler
type report struct {
	System     Status            `json:"system"`
	Subsystems map[string]Status `json:"subsystems"`
}

// Handler serves the aggregate as JSON. Unhealthy aggregates get a 503
// so load balancers can act on the code alone.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		agg := m.Aggregate(systemName)
		w.Header().Set("Content-Type", "application/json")
		if agg.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report{System: agg, Subsystems: m.GetAll()})
	})
}
