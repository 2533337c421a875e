package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hydra_router"

// Metrics holds the router's Prometheus collectors
type Metrics struct {
	Decisions       *prometheus.CounterVec
	NoModel         *prometheus.CounterVec
	Complexity      prometheus.Histogram
	Confidence      *prometheus.HistogramVec
	CatalogModels   prometheus.Gauge
	CatalogRefresh  *prometheus.CounterVec
	RecorderDropped prometheus.Counter
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector on reg. Pass prometheus.NewRegistry()
// in tests to avoid clashing with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Routing decisions by tier and whether the model was substituted",
			},
			[]string{"tier", "substituted"},
		),
		NoModel: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "no_model_total",
				Help:      "Requests that could not be served by any available model",
			},
			[]string{"tier"},
		),
		Complexity: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "complexity",
				Help:      "Complexity score of routed prompts",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		Confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "confidence",
				Help:      "Decision confidence by tier",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"tier"},
		),
		CatalogModels: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_models",
				Help:      "Models in the current availability snapshot",
			},
		),
		CatalogRefresh: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_refresh_total",
				Help:      "Catalog refresh attempts by result",
			},
			[]string{"result"},
		),
		RecorderDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decision_log_dropped_total",
				Help:      "Decision records dropped because the buffer was full",
			},
		),
		RequestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveDecision records a successful routing decision
func (m *Metrics) ObserveDecision(tier string, substituted bool, complexity, confidence float64) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(tier, strconv.FormatBool(substituted)).Inc()
	m.Complexity.Observe(complexity)
	m.Confidence.WithLabelValues(tier).Observe(confidence)
}

// ObserveNoModel records a request that no model could serve
func (m *Metrics) ObserveNoModel(tier string) {
	if m == nil {
		return
	}
	m.NoModel.WithLabelValues(tier).Inc()
}

// ObserveCatalogRefresh records a catalog refresh and the resulting size
func (m *Metrics) ObserveCatalogRefresh(models int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CatalogRefresh.WithLabelValues("error").Inc()
		return
	}
	m.CatalogRefresh.WithLabelValues("ok").Inc()
	m.CatalogModels.Set(float64(models))
}

// ObserveRecorderDrop records a dropped decision record
func (m *Metrics) ObserveRecorderDrop() {
	if m == nil {
		return
	}
	m.RecorderDropped.Inc()
}

// Middleware instruments HTTP handlers. Routes are labelled with the chi
// route pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
