package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the analysis workflow.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestsInProgress prometheus.Gauge
	RequestDuration    *prometheus.HistogramVec
	AnalysesTotal      *prometheus.CounterVec
	FailuresTotal      *prometheus.CounterVec
	ClassifyDuration   *prometheus.HistogramVec
	registry           *prometheus.Registry
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})
	m.RequestsInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_progress",
		Help: "HTTP requests currently being served",
	})
	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	m.AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analyses_total",
		Help: "Completed analyses by risk level",
	}, []string{"risk_level"})
	m.FailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failures_total",
		Help: "Analyses that left an orphaned artifact, by failing phase",
	}, []string{"phase"})
	m.ClassifyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classifier_duration_seconds",
		Help:    "Classifier call latency by outcome",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"outcome"})

	for _, c := range []prometheus.Collector{
		m.RequestsTotal, m.RequestsInProgress, m.RequestDuration,
		m.AnalysesTotal, m.FailuresTotal, m.ClassifyDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) RecordAnalysis(risk domain.RiskLevel) {
	m.AnalysesTotal.WithLabelValues(string(risk)).Inc()
}

func (m *Metrics) RecordFailure(phase string) {
	m.FailuresTotal.WithLabelValues(phase).Inc()
}

func (m *Metrics) ObserveClassify(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ClassifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware tracks request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInProgress.Inc()
		defer m.RequestsInProgress.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
