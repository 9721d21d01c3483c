package fragments

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ldf"

// Metrics are the Prometheus collectors of the fragment client.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Duration     prometheus.Histogram
	Retries      prometheus.Counter
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	PageFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "The total number of fragment page requests by status code.",
		}, []string{"code"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of fragment page requests, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_retries_total",
			Help:      "The total number of retried fragment page requests.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fragment_cache_hits_total",
			Help:      "The total number of fragments served from the client cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fragment_cache_misses_total",
			Help:      "The total number of fragments that had to be requested.",
		}),
		PageFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fragment_page_failures_total",
			Help:      "The total number of fragment pages that could not be loaded.",
		}),
	}
}
