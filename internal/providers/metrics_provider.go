package providers

import (
	"time"
	"tlsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncSyncRuns(scope, result string)
	ObserveSyncDuration(duration time.Duration)
	AddRecordsExported(count int)
	IncSourceRequests(endpoint string, status int)
	IncSourceRetries()
}

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	recordsExported prometheus.Counter
	sourceRequests  *prometheus.CounterVec
	sourceRetries   prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncSyncRuns(scope, result string) {
	m.syncRuns.WithLabelValues(scope, result).Inc()
}

func (m *MetricsProvider) ObserveSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) AddRecordsExported(count int) {
	m.recordsExported.Add(float64(count))
}

func (m *MetricsProvider) IncSourceRequests(endpoint string, status int) {
	m.sourceRequests.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) IncSourceRetries() {
	m.sourceRetries.Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tlsync_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tlsync_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tlsync_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tlsync_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		syncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tlsync_sync_runs_total",
			Help: "Total number of sync runs by scope and result",
		}, []string{"scope", "result"}),

		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tlsync_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		recordsExported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tlsync_records_exported_total",
			Help: "Total number of canonical records written to export files",
		}),

		sourceRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tlsync_source_requests_total",
			Help: "Total number of requests to the source service",
		}, []string{"endpoint", "status"}),

		sourceRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tlsync_source_retries_total",
			Help: "Total number of retried source requests (rate limit or transient failure)",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                     {}
func (n *noopMetrics) IncCacheMisses()                                   {}
func (n *noopMetrics) IncSyncRuns(_, _ string)                           {}
func (n *noopMetrics) ObserveSyncDuration(_ time.Duration)               {}
func (n *noopMetrics) AddRecordsExported(_ int)                          {}
func (n *noopMetrics) IncSourceRequests(_ string, _ int)                 {}
func (n *noopMetrics) IncSourceRetries()                                 {}
