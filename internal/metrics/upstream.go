package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream and cache Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetlink",
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to external search services",
		},
		[]string{"service", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assetlink",
			Name:      "upstream_request_duration_seconds",
			Help:      "External search request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetlink",
			Name:      "upstream_errors_total",
			Help:      "Total external search errors by kind",
		},
		[]string{"service", "error_type"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetlink",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var upstreamMetricsRegistered bool

// RegisterUpstreamMetrics registers upstream metrics. Must be called once from main.
func RegisterUpstreamMetrics() {
	if upstreamMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(UpstreamErrorsTotal)
	prometheus.MustRegister(ResultCacheTotal)
	upstreamMetricsRegistered = true
}
