package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flexprice/tenantcore/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tenantcore"

// Metrics owns its registry so tests can build as many as they like
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	transitions         *prometheus.CounterVec
	boundaryViolations  *prometheus.CounterVec
	bypassRequests      *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	provisioningSteps   *prometheus.CounterVec
	quotaAlerts         *prometheus.CounterVec
	rateLimited         prometheus.Counter
	monitorTickDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Tenant lifecycle transitions",
		}, []string{"from", "to"}),
		boundaryViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_violations_total",
			Help:      "Rejected cross-tenant accesses by kind",
		}, []string{"kind"}),
		bypassRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bypass_requests_total",
			Help:      "Elevated administrative requests",
		}, []string{"success"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Billing webhook deliveries by outcome",
		}, []string{"provider", "outcome"}),
		provisioningSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_steps_total",
			Help:      "Provisioning step executions by outcome",
		}, []string{"step", "outcome"}),
		quotaAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_alerts_total",
			Help:      "Quota alert state changes",
		}, []string{"metric", "state"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the daily API quota",
		}),
		monitorTickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_scan_duration_seconds",
			Help:      "Lifecycle monitor scan duration",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"scan"}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.boundaryViolations,
		m.bypassRequests,
		m.webhookEvents,
		m.provisioningSteps,
		m.quotaAlerts,
		m.rateLimited,
		m.monitorTickDuration,
	)
	return m
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Transition(from, to types.TenantStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) BoundaryViolation(kind string) {
	m.boundaryViolations.WithLabelValues(kind).Inc()
}

func (m *Metrics) BypassRequest(success bool) {
	m.bypassRequests.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (m *Metrics) WebhookEvent(provider types.BillingProvider, outcome string) {
	m.webhookEvents.WithLabelValues(string(provider), outcome).Inc()
}

func (m *Metrics) ProvisioningStep(step types.ProvisioningStep, outcome string) {
	m.provisioningSteps.WithLabelValues(string(step), outcome).Inc()
}

func (m *Metrics) QuotaAlert(metric types.AlertMetric, state types.AlertState) {
	m.quotaAlerts.WithLabelValues(string(metric), string(state)).Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) MonitorScan(scan string, elapsed time.Duration) {
	m.monitorTickDuration.WithLabelValues(scan).Observe(elapsed.Seconds())
}
