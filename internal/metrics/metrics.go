// Package metrics exposes Prometheus counters for the serving path.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/salescast/internal/modelspec"
)

const namespace = "salescast"

// Metrics holds every collector on its own registry
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	coldStarts        prometheus.Counter
	priceFallbacks    *prometheus.CounterVec
	dataUnavailable   prometheus.Counter
	unknownCategories *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
}

// New registers all collectors plus the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		coldStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cold_start_total",
			Help:      "Predictions for item/store pairs with no recent history.",
		}),
		priceFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fallback_total",
			Help:      "Price lookups that missed the requested week and used a fallback.",
		}, []string{"policy"}),
		dataUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_unavailable_total",
			Help:      "Predictions rejected because the pair has no price history.",
		}),
		unknownCategories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_category_total",
			Help:      "Categorical values never seen when the encoders were fit.",
		}, []string{"column", "policy"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
	}

	m.Registry.MustRegister(
		m.httpRequests, m.httpDuration, m.coldStarts, m.priceFallbacks,
		m.dataUnavailable, m.unknownCategories, m.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route string, status int, seconds float64) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveJob records one scheduled job run
func (m *Metrics) ObserveJob(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

func (m *Metrics) ColdStart(string, string) {
	m.coldStarts.Inc()
}

func (m *Metrics) PriceFallback(policy modelspec.PriceFallback) {
	m.priceFallbacks.WithLabelValues(string(policy)).Inc()
}

func (m *Metrics) DataUnavailable(string, string) {
	m.dataUnavailable.Inc()
}

func (m *Metrics) UnknownCategory(column string, policy modelspec.UnknownPolicy) {
	m.unknownCategories.WithLabelValues(column, string(policy)).Inc()
}
