// Package metrics provides Prometheus metrics for the battleball tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all collectors and the registry they live in.
type Manager struct {
	registry *prometheus.Registry

	// Worker metrics.
	jobsProcessed    prometheus.Counter
	jobsFailed       prometheus.Counter
	matchesScored    prometheus.Counter
	matchesSkipped   prometheus.Counter
	matchesDuplicate prometheus.Counter
	workerRunning    prometheus.Gauge
	jobDuration      prometheus.Histogram

	// Queue metrics.
	queueDepth      prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueDuplicates prometheus.Counter

	// External API metrics.
	apiAttempts    *prometheus.CounterVec
	apiExhausted   *prometheus.CounterVec
	apiCallLatency prometheus.Histogram

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager builds a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		registry: prometheus.NewRegistry(),
	}
	cfg := settings{namespace: "battletrack"}
	for _, opt := range opts {
		opt(&cfg)
	}
	m.initialize(cfg)
	return m
}

func (m *Manager) initialize(cfg settings) {
	ns := cfg.namespace

	m.jobsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "worker", Name: "jobs_processed_total",
		Help: "Update jobs fully drained from the queue.",
	})
	m.jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "worker", Name: "jobs_failed_total",
		Help: "Update jobs that ended in a resolution failure.",
	})
	m.matchesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "worker", Name: "matches_scored_total",
		Help: "Matches whose score delta was applied and ledger row written.",
	})
	m.matchesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "worker", Name: "matches_skipped_total",
		Help: "Matches left unscored this pass because detail fetch failed.",
	})
	m.matchesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "worker", Name: "matches_duplicate_total",
		Help: "Matches found already present in the dedup ledger.",
	})
	m.workerRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "worker", Name: "running",
		Help: "1 while the drain loop is active.",
	})
	m.jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "worker", Name: "job_duration_seconds",
		Help:    "Wall time spent processing one queue entry.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "queue", Name: "depth",
		Help: "Pending entries in the update queue.",
	})
	m.queueEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "queue", Name: "enqueued_total",
		Help: "Entries admitted to the queue.",
	})
	m.queueDuplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "queue", Name: "duplicates_total",
		Help: "Enqueue calls answered with an existing position.",
	})

	m.apiAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "habbo", Name: "attempts_total",
		Help: "Upstream API attempts by operation and outcome.",
	}, []string{"op", "outcome"})
	m.apiExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "habbo", Name: "retries_exhausted_total",
		Help: "Operations that gave up after the attempt ceiling.",
	}, []string{"op"})
	m.apiCallLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "habbo", Name: "call_duration_seconds",
		Help:    "Latency of successful upstream calls.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	m.registry.MustRegister(
		m.jobsProcessed, m.jobsFailed,
		m.matchesScored, m.matchesSkipped, m.matchesDuplicate,
		m.workerRunning, m.jobDuration,
		m.queueDepth, m.queueEnqueued, m.queueDuplicates,
		m.apiAttempts, m.apiExhausted, m.apiCallLatency,
		m.httpRequests, m.httpRequestDuration,
	)
}

// Handler returns the /metrics endpoint for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

var defaultManager = NewManager()

// Default returns the process-wide manager.
func Default() *Manager { return defaultManager }

// Package-level helpers mirroring the manager's collectors. All of them
// are safe for concurrent use.

func RecordJobProcessed() { defaultManager.jobsProcessed.Inc() }
func RecordJobFailed() { defaultManager.jobsFailed.Inc() }
func RecordMatchScored() { defaultManager.matchesScored.Inc() }
func RecordMatchSkipped() { defaultManager.matchesSkipped.Inc() }
func RecordMatchDuplicate() { defaultManager.matchesDuplicate.Inc() }

func SetWorkerRunning(running bool) {
	if running {
		defaultManager.workerRunning.Set(1)
		return
	}
	defaultManager.workerRunning.Set(0)
}

func RecordJobDuration(seconds float64) { defaultManager.jobDuration.Observe(seconds) }

func UpdateQueueDepth(n int) { defaultManager.queueDepth.Set(float64(n)) }
func RecordEnqueued() { defaultManager.queueEnqueued.Inc() }
func RecordEnqueueDuplicate() { defaultManager.queueDuplicates.Inc() }

func RecordAPIAttempt(op string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	defaultManager.apiAttempts.WithLabelValues(op, outcome).Inc()
}

func RecordAPIExhausted(op string) { defaultManager.apiExhausted.WithLabelValues(op).Inc() }
func RecordAPICallDuration(seconds float64) { defaultManager.apiCallLatency.Observe(seconds) }

func RecordHTTPRequest(endpoint, method, status string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint string, seconds float64) {
	defaultManager.httpRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
