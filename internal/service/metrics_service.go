package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/ams-api/internal/models"
)

const metricsNamespace = "ams"

// timing accumulates a count and a total duration for average calculations.
type timing struct {
	count atomic.Uint64
	nanos atomic.Uint64
}

func (t *timing) add(d time.Duration) {
	t.count.Add(1)
	t.nanos.Add(uint64(d.Nanoseconds()))
}

func (t *timing) averageMs() (uint64, float64) {
	n := t.count.Load()
	if n == 0 {
		return 0, 0
	}
	return n, float64(t.nanos.Load()) / float64(n) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry and keeps in-process
// aggregates for the system analytics endpoint. A nil *MetricsService is a
// valid no-op.
type MetricsService struct {
	handler http.Handler

	httpDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	cacheHitRatio   prometheus.Gauge
	queryDuration   *prometheus.HistogramVec
	attendanceMarks *prometheus.CounterVec
	tokensPurged    prometheus.Counter

	requests    timing
	queries     timing
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	marks       atomic.Uint64
	purged      atomic.Uint64
}

// NewMetricsService registers the HTTP, cache, query and attendance
// collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "analytics_cache",
			Name:      "lookups_total",
			Help:      "Analytics cache lookups by outcome.",
		}, []string{"outcome"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "analytics_cache",
			Name:      "operation_seconds",
			Help:      "Analytics cache operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "analytics_cache",
			Name:      "hit_ratio",
			Help:      "Hits over total analytics cache lookups since start.",
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of instrumented queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		attendanceMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "attendance",
			Name:      "marks_total",
			Help:      "Attendance rows written by teachers.",
		}, []string{"result"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "refresh_tokens_purged_total",
			Help:      "Refresh tokens removed by the janitor.",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.httpDuration, m.httpRequests,
		m.cacheLookups, m.cacheLatency, m.cacheHitRatio,
		m.queryDuration, m.attendanceMarks, m.tokensPurged,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the Prometheus exposition format, or 503 when metrics are off.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation counts a lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
	m.cacheHitRatio.Set(m.hitRatio())
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.add(duration)
}

// RecordAttendanceMarks counts rows inserted and overwritten by one marking.
func (m *MetricsService) RecordAttendanceMarks(created, updated int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.attendanceMarks.WithLabelValues("created").Add(float64(created))
	}
	if updated > 0 {
		m.attendanceMarks.WithLabelValues("updated").Add(float64(updated))
	}
	m.marks.Add(uint64(created + updated))
}

func (m *MetricsService) RecordTokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
	m.purged.Add(uint64(n))
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns the aggregates exposed by /admin/analytics/system.
func (m *MetricsService) Snapshot() models.AnalyticsSystemMetrics {
	if m == nil {
		return models.AnalyticsSystemMetrics{GeneratedAt: time.Now().UTC(), Goroutines: runtime.NumGoroutine()}
	}
	requests, avgRequest := m.requests.averageMs()
	queries, avgQuery := m.queries.averageMs()
	return models.AnalyticsSystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                m.cacheHits.Load(),
		CacheMisses:              m.cacheMisses.Load(),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequest,
		DBQueryCount:             queries,
		AverageDBQueryDurationMs: avgQuery,
		AttendanceMarks:          m.marks.Load(),
		RefreshTokensPurged:      m.purged.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
