// Package metrics defines service-level metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result cache counters
var (
	ResultCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_cache_hits_total",
		Help:      "Total number of simulation result cache hits",
	})
	ResultCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_cache_misses_total",
		Help:      "Total number of simulation result cache misses",
	})
)

// Upstream and background job counters
var (
	RankerRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ranker_requests_total",
		Help:      "Total number of ranker score requests by status",
	}, []string{"status"})

	SchedulerJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_jobs_total",
		Help:      "Total number of scheduled warm-up jobs by status",
	}, []string{"status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status code",
	}, []string{"route", "code"})
)

// RecordCacheHit records a result cache hit.
func RecordCacheHit() {
	ResultCacheHitsTotal.Inc()
}

// RecordCacheMiss records a result cache miss.
func RecordCacheMiss() {
	ResultCacheMissesTotal.Inc()
}

// RecordRankerRequest records a ranker request outcome.
func RecordRankerRequest(status string) {
	RankerRequestsTotal.WithLabelValues(status).Inc()
}

// RecordSchedulerJob records a scheduled job outcome.
func RecordSchedulerJob(status string) {
	SchedulerJobsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string) {
	HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
