package apiclient

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricEntry is one recorded request attempt. Entries are immutable and
// never removed.
type MetricEntry struct {
	Status    int
	Duration  time.Duration
	Timestamp time.Time
}

// MetricsRegistry is an append-only recorder of request attempts keyed by
// "METHOD endpoint". It is safe for concurrent writers; Snapshot returns a
// deep copy so callers never observe concurrent mutation while iterating.
type MetricsRegistry struct {
	mu      sync.Mutex
	entries map[string][]MetricEntry

	// Optional prometheus mirrors; nil unless constructed with
	// NewMetricsRegistryWithPrometheus.
	durations *prometheus.HistogramVec
	requests  *prometheus.CounterVec

	now func() time.Time
}

// NewMetricsRegistry creates an empty in-process registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		entries: make(map[string][]MetricEntry),
		now:     time.Now,
	}
}

// NewMetricsRegistryWithPrometheus creates a registry that additionally
// mirrors every recorded attempt into prometheus instruments registered
// with reg.
func NewMetricsRegistryWithPrometheus(reg prometheus.Registerer) *MetricsRegistry {
	m := NewMetricsRegistry()

	m.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apiclient_request_duration_seconds",
		Help:    "Duration of API request attempts in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "endpoint", "status"})

	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apiclient_requests_total",
		Help: "Total API request attempts.",
	}, []string{"method", "endpoint", "status"})

	reg.MustRegister(m.durations, m.requests)
	return m
}

// Record appends an attempt under the key "METHOD endpoint".
func (m *MetricsRegistry) Record(method Method, endpoint string, status int, duration time.Duration) {
	key := string(method) + " " + endpoint

	m.mu.Lock()
	m.entries[key] = append(m.entries[key], MetricEntry{
		Status:    status,
		Duration:  duration,
		Timestamp: m.now(),
	})
	m.mu.Unlock()

	if m.durations != nil {
		labels := prometheus.Labels{
			"method":   string(method),
			"endpoint": endpoint,
			"status":   strconv.Itoa(status),
		}
		m.durations.With(labels).Observe(duration.Seconds())
		m.requests.With(labels).Inc()
	}
}

// Snapshot returns a copy of every recorded series. Mutating the returned
// map or slices has no effect on the registry.
func (m *MetricsRegistry) Snapshot() map[string][]MetricEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]MetricEntry, len(m.entries))
	for k, v := range m.entries {
		cp := make([]MetricEntry, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
