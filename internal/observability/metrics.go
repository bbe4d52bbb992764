package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flujoapp/flujo/internal/cashflow"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ledgerBuilds   prometheus.Counter
	ledgerEvents   prometheus.Histogram
	ledgerDuration prometheus.Histogram
	droppedDocs    *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flujo_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flujo_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	builds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flujo_ledger_builds_total",
		Help: "Completed reconciliation runs.",
	})
	events := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flujo_ledger_events",
		Help:    "Ledger entries produced per reconciliation run.",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})
	buildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flujo_ledger_build_duration_seconds",
		Help:    "Reconciliation run duration.",
		Buckets: prometheus.DefBuckets,
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flujo_ledger_dropped_documents_total",
		Help: "Documents excluded from the ledger by omission, per reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, builds, events, buildDuration, dropped)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ledgerBuilds:    builds,
		ledgerEvents:    events,
		ledgerDuration:  buildDuration,
		droppedDocs:     dropped,
	}
}

// RecordBuild implements cashflow.StatsRecorder.
func (m *Metrics) RecordBuild(stats cashflow.BuildStats, events int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ledgerBuilds.Inc()
	m.ledgerEvents.Observe(float64(events))
	m.ledgerDuration.Observe(elapsed.Seconds())
	if stats.OrphanCreditNotes > 0 {
		m.droppedDocs.WithLabelValues("orphan_credit_note").Add(float64(stats.OrphanCreditNotes))
	}
	if stats.UnresolvedInvoices > 0 {
		m.droppedDocs.WithLabelValues("unresolved_date").Add(float64(stats.UnresolvedInvoices))
	}
	if stats.SkippedCreditNotes > 0 {
		m.droppedDocs.WithLabelValues("credit_note_without_date").Add(float64(stats.SkippedCreditNotes))
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
