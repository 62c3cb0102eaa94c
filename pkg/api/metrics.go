package api

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client side Prometheus metrics and a cheap in-process summary.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec

	requests     atomic.Int64
	cached       atomic.Int64
	responseTime atomic.Int64 // nanoseconds, summed
}

// NewMetrics registers the client metrics on reg. A nil reg creates a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "noteq",
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of HTTP attempts by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "noteq",
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "HTTP attempt duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "noteq",
				Subsystem: "client",
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
	}
}

func (m *Metrics) observeRequest(endpoint string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestCounter.WithLabelValues(endpoint, label).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	m.requests.Add(1)
	m.responseTime.Add(int64(d))
}

// ObserveCache records a cache lookup. Its signature matches cache.WithObserver.
func (m *Metrics) ObserveCache(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
		m.cached.Add(1)
	}
	m.CacheLookups.WithLabelValues(name, result).Inc()
}

// Summary is the in-process performance summary.
type Summary struct {
	TotalRequests       int64   `json:"total_requests"`
	CachedRequests      int64   `json:"cached_requests"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
}

// Summary returns counters accumulated since the client was created.
func (m *Metrics) Summary() Summary {
	s := Summary{
		TotalRequests:  m.requests.Load(),
		CachedRequests: m.cached.Load(),
	}
	if s.TotalRequests > 0 {
		s.AverageResponseTime = float64(m.responseTime.Load()) / float64(s.TotalRequests) / float64(time.Millisecond)
	}
	return s
}
