package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the list cache, and the enrollment relation manager.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	edgeOperations  *prometheus.CounterVec
	compensations   prometheus.Counter
	lockTimeouts    prometheus.Counter
}

// NewMetricsService registers the core collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "list_cache_hits_total",
		Help: "Total list cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "list_cache_misses_total",
		Help: "Total list cache misses",
	})

	edgeOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_edge_operations_total",
		Help: "Enrollment edge operations by operation and result",
	}, []string{"operation", "result"})

	compensations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_compensations_total",
		Help: "Compensating writes issued after partial enrollment updates",
	})

	lockTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_lock_timeouts_total",
		Help: "Enrollment operations that timed out waiting for a record lock",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		edgeOperations, compensations, lockTimeouts, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		edgeOperations:  edgeOperations,
		compensations:   compensations,
		lockTimeouts:    lockTimeouts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup records a list cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveEdgeOperation implements relation.Metrics.
func (m *MetricsService) ObserveEdgeOperation(op, result string) {
	if m == nil {
		return
	}
	m.edgeOperations.WithLabelValues(op, result).Inc()
}

// RecordCompensation implements relation.Metrics.
func (m *MetricsService) RecordCompensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}

// RecordLockTimeout implements relation.Metrics.
func (m *MetricsService) RecordLockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}
