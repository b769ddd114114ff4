// Package metrics exposes Prometheus collectors for calculations and HTTP
// traffic. Every method is safe on a nil *Metrics, so callers that do not
// want metrics (tests, the CLI) can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netpay"

// Calculation outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeConfiguration = "configuration_error"
	OutcomeError         = "error"
)

// Parameter reload results.
const (
	ReloadApplied = "applied"
	ReloadFailed  = "failed"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	calculations   *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	calcDuration   *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	parameterYears *prometheus.GaugeVec
	reloads        *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Net-pay calculations by regime and outcome.",
		}, []string{"regime", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parameter_fallbacks_total",
			Help:      "Calculations that used parameters from an earlier or later year than requested.",
		}, []string{"regime"}),
		calcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Time spent in the calculation engine.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}, []string{"regime"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		parameterYears: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parameter_years",
			Help:      "Number of years with parameter data, by regime.",
		}, []string{"regime"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parameter_reloads_total",
			Help:      "Parameter table reloads from the store, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.calculations,
		m.fallbacks,
		m.calcDuration,
		m.httpRequests,
		m.httpDuration,
		m.parameterYears,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCalculation records one engine call.
func (m *Metrics) ObserveCalculation(regime, outcome string, fallback bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(regime, outcome).Inc()
	m.calcDuration.WithLabelValues(regime).Observe(elapsed.Seconds())
	if fallback {
		m.fallbacks.WithLabelValues(regime).Inc()
	}
}

// SetParameterYears publishes how many years of data a regime has.
func (m *Metrics) SetParameterYears(regime string, years int) {
	if m == nil {
		return
	}
	m.parameterYears.WithLabelValues(regime).Set(float64(years))
}

// ObserveReload counts one applied or failed parameter reload.
func (m *Metrics) ObserveReload(result string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency, labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
