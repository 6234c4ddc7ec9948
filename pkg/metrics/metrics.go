package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	DomainsInQueue      prometheus.Gauge
	DomainsTotal        *prometheus.CounterVec
	DomainCrawlDuration *prometheus.HistogramVec
	PagesTotal          *prometheus.CounterVec
	NavigationRetries   prometheus.Counter
	ArtifactsStored     *prometheus.CounterVec
}

// New registers every metric with reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		DomainsInQueue: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "domains_in_queue",
				Help: "Current number of domains waiting in the crawl queue.",
			},
		),
		DomainsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domains_processed_total",
				Help: "Total number of processed domains.",
			},
			[]string{"status", "error_type"}, // status: success, failure
		),
		DomainCrawlDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domain_crawl_duration_seconds",
				Help:    "Duration of a whole domain crawl.",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pages_processed_total",
				Help: "Total number of visited pages.",
			},
			[]string{"status"},
		),
		NavigationRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "navigation_retries_total",
				Help: "Total number of page loads retried with a fresh browser session.",
			},
		),
		ArtifactsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifacts_stored_total",
				Help: "Total number of stored artifacts.",
			},
			[]string{"kind"},
		),
	}
}
