package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and pipeline flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	jobsEnqueuedTotal   *prometheus.CounterVec
	deliveriesTotal     *prometheus.CounterVec
	deliveryDuration    *prometheus.HistogramVec
	retriesScheduled    *prometheus.CounterVec
	breachAlertsTotal   prometheus.Counter
	strugglingJobsGauge prometheus.Gauge
	auditAppendsTotal   *prometheus.CounterVec
	auditAppendFailures prometheus.Counter
	idempotencyOutcomes *prometheus.CounterVec
	sweptKeysTotal      prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notiq",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		jobsEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "jobs_enqueued_total",
				Help:      "Total number of notification jobs enqueued.",
			},
			[]string{"channel"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "deliveries_total",
				Help:      "Delivery attempts by provider path and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notiq",
				Name:      "delivery_duration_seconds",
				Help:      "Provider send duration in seconds grouped by provider path.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		retriesScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "retries_scheduled_total",
				Help:      "Total number of jobs rescheduled with backoff.",
			},
			[]string{"channel"},
		),
		breachAlertsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "sla_breach_alerts_total",
				Help:      "Total number of SLA breach alerts sent for exhausted jobs.",
			},
		),
		strugglingJobsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "notiq",
				Name:      "struggling_jobs",
				Help:      "Jobs at or above the repeated-failure threshold, per last health check.",
			},
		),
		auditAppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "audit_appends_total",
				Help:      "Audit ledger appends by delivery outcome.",
			},
			[]string{"outcome"},
		),
		auditAppendFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "audit_append_failures_total",
				Help:      "Audit ledger appends that failed and were logged-and-ignored.",
			},
		),
		idempotencyOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "idempotency_outcomes_total",
				Help:      "Idempotency guard outcomes (executed, replayed, rejected).",
			},
			[]string{"outcome"},
		),
		sweptKeysTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notiq",
				Name:      "idempotency_keys_swept_total",
				Help:      "Expired idempotency keys removed by the sweeper.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.jobsEnqueuedTotal,
		m.deliveriesTotal,
		m.deliveryDuration,
		m.retriesScheduled,
		m.breachAlertsTotal,
		m.strugglingJobsGauge,
		m.auditAppendsTotal,
		m.auditAppendFailures,
		m.idempotencyOutcomes,
		m.sweptKeysTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncJobEnqueued(channel string) {
	if m == nil {
		return
	}
	m.jobsEnqueuedTotal.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) IncDelivery(provider string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.deliveriesTotal.WithLabelValues(normalizeLabel(provider), outcome).Inc()
}

func (m *Metrics) ObserveDeliveryDuration(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryDuration.WithLabelValues(normalizeLabel(provider)).Observe(seconds)
}

func (m *Metrics) IncRetryScheduled(channel string) {
	if m == nil {
		return
	}
	m.retriesScheduled.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) IncBreachAlert() {
	if m == nil {
		return
	}
	m.breachAlertsTotal.Inc()
}

func (m *Metrics) SetStrugglingJobs(count int64) {
	if m == nil {
		return
	}
	m.strugglingJobsGauge.Set(float64(count))
}

func (m *Metrics) IncAuditAppend(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.auditAppendsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncAuditAppendFailure() {
	if m == nil {
		return
	}
	m.auditAppendFailures.Inc()
}

func (m *Metrics) IncIdempotencyOutcome(outcome string) {
	if m == nil {
		return
	}
	m.idempotencyOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) AddSweptKeys(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.sweptKeysTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
