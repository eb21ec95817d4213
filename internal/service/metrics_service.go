package service

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// MetricsSnapshot is a lightweight summary exposed on the health endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DispatchTotal            uint64    `json:"dispatch_total"`
	DispatchErrors           uint64    `json:"dispatch_errors"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// bus dispatches, admin actions, session storage and transactions.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	adminActions     *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	txDuration       *prometheus.HistogramVec

	requestCount         uint64
	requestDurationTotal uint64
	dispatchCount        uint64
	dispatchErrorCount   uint64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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

	dispatchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bus_dispatch_duration_seconds",
		Help:    "Duration of command and query handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "message", "outcome"})

	adminActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_actions_total",
		Help: "Admin panel actions by outcome",
	}, []string{"action", "resource", "outcome"})

	sessionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admin_session_store_duration_seconds",
		Help:    "Latency of admin session store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})

	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_transaction_duration_seconds",
		Help:    "Duration of unit of work transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dispatchDuration, adminActions, sessionDuration, txDuration, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		dispatchDuration: dispatchDuration,
		adminActions:     adminActions,
		sessionDuration:  sessionDuration,
		txDuration:       txDuration,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveDispatch matches bus.Observer.
func (m *MetricsService) ObserveDispatch(kind, message string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(kind, message, outcome(err)).Observe(duration.Seconds())
	atomic.AddUint64(&m.dispatchCount, 1)
	if err != nil {
		atomic.AddUint64(&m.dispatchErrorCount, 1)
	}
}

// ObserveAdmin implements admin.Observer.
func (m *MetricsService) ObserveAdmin(_ context.Context, ev admin.Event) {
	if m == nil {
		return
	}
	m.adminActions.WithLabelValues(ev.Action, ev.Resource, outcome(ev.Err)).Inc()
}

// ObserveSession matches session.Observer.
func (m *MetricsService) ObserveSession(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sessionDuration.WithLabelValues(op, outcome(err)).Observe(duration.Seconds())
}

// ObserveTransaction records the duration of one unit of work.
func (m *MetricsService) ObserveTransaction(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(outcome(err)).Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DispatchTotal:            atomic.LoadUint64(&m.dispatchCount),
		DispatchErrors:           atomic.LoadUint64(&m.dispatchErrorCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
