// Package metrics exposes Prometheus collectors for the local API, the auth lifecycle and resource operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeDenied  = "denied"
	OutcomeSkipped = "skipped"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	resourceOps     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studyzone_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studyzone_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studyzone_auth_events_total",
		Help: "Session restore, login, logout and registration attempts by outcome",
	}, []string{"event", "outcome"})

	resourceOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studyzone_resource_operations_total",
		Help: "Course and resource mutations by kind, operation and outcome",
	}, []string{"kind", "op", "outcome"})

	registry.MustRegister(requestDuration, requestTotal, authEvents, resourceOps)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		authEvents:      authEvents,
		resourceOps:     resourceOps,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// ResourceOp counts a catalog mutation, e.g. ("pastPaper", "upload", err).
func (m *Metrics) ResourceOp(kind, op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.resourceOps.WithLabelValues(kind, op, outcome).Inc()
}

// Middleware records request metrics labelled by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
