package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subdesk"

// Registry owns the prometheus registry exposed on /metrics and the
// collectors recorded by the service
type Registry struct {
	registry *prometheus.Registry

	BillingRuns              *prometheus.CounterVec
	BillingRunDuration       prometheus.Histogram
	BillingInvoicesGenerated *prometheus.CounterVec
	BillingFailures          prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the process and go collectors plus the
// service metrics
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		BillingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "runs_total",
			Help:      "Total number of billing runs by trigger",
		}, []string{"trigger"}),
		BillingRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "run_duration_seconds",
			Help:      "Duration of billing runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BillingInvoicesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "invoices_generated_total",
			Help:      "Total number of invoices generated by billing runs",
		}, []string{"currency", "billing_cycle"}),
		BillingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "failures_total",
			Help:      "Total number of subscriptions that failed to bill",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.BillingRuns,
		r.BillingRunDuration,
		r.BillingInvoicesGenerated,
		r.BillingFailures,
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
	)

	return r
}

// Handler serves the registry in the prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveBillingRun records a completed run
func (r *Registry) ObserveBillingRun(trigger string, elapsed time.Duration) {
	r.BillingRuns.WithLabelValues(trigger).Inc()
	r.BillingRunDuration.Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records a finished request
func (r *Registry) ObserveHTTPRequest(method, path, statusCode string, elapsed time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
