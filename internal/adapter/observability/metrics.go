package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram/gauge the service exports.
// Constructed once at startup and threaded through the gateway,
// scheduler, and orchestrator.
type Metrics struct {
	WebhooksReceived   *prometheus.CounterVec
	WebhooksRejected   *prometheus.CounterVec
	JobsEnqueued       *prometheus.CounterVec
	JobsCompleted      *prometheus.CounterVec
	JobsRetried        *prometheus.CounterVec
	JobsDeadLettered   *prometheus.CounterVec
	ReviewDuration     *prometheus.HistogramVec
	ReviewCostUSD      *prometheus.HistogramVec
	FindingsPosted     *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	CredentialRefresh  *prometheus.CounterVec
	ForgeRequests      *prometheus.CounterVec
	CircuitBreakerTrip *prometheus.CounterVec
}

// NewMetrics registers every collector against reg and returns the
// populated Metrics struct. Pass prometheus.NewRegistry() in tests to
// avoid colliding with the global default registry across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_webhooks_received_total",
			Help: "Webhook deliveries received, labeled by event type.",
		}, []string{"event"}),
		WebhooksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_webhooks_rejected_total",
			Help: "Webhook deliveries rejected, labeled by reason.",
		}, []string{"reason"}),
		JobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_jobs_enqueued_total",
			Help: "Jobs enqueued, labeled by lane.",
		}, []string{"lane"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_jobs_completed_total",
			Help: "Jobs completed, labeled by lane and outcome.",
		}, []string{"lane", "outcome"}),
		JobsRetried: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_jobs_retried_total",
			Help: "Jobs retried after a transient failure, labeled by lane.",
		}, []string{"lane"}),
		JobsDeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_jobs_dead_lettered_total",
			Help: "Jobs moved to the dead-letter queue, labeled by lane.",
		}, []string{"lane"}),
		ReviewDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prreview_review_duration_seconds",
			Help:    "Wall-clock duration of a review pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		ReviewCostUSD: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prreview_review_cost_usd",
			Help:    "Accumulated model-call cost per review, in USD.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		FindingsPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_findings_posted_total",
			Help: "Findings posted as inline comments, labeled by severity.",
		}, []string{"severity"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "prreview_queue_depth",
			Help: "Current number of queued jobs, labeled by lane.",
		}, []string{"lane"}),
		CredentialRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_credential_refresh_total",
			Help: "Installation credential refreshes, labeled by outcome.",
		}, []string{"outcome"}),
		ForgeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_forge_requests_total",
			Help: "Forge API requests, labeled by method and outcome.",
		}, []string{"method", "outcome"}),
		CircuitBreakerTrip: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prreview_circuit_breaker_trips_total",
			Help: "Times an installation's forge circuit breaker opened.",
		}, []string{"installation_id"}),
	}
}

// Handler returns the HTTP handler to mount at the metrics listen
// address configured in ObservabilityConfig.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WebhookReceived records one inbound delivery, labeled by event kind.
func (m *Metrics) WebhookReceived(event string) {
	m.WebhooksReceived.WithLabelValues(event).Inc()
}

// WebhookRejected records one delivery rejected before admission was
// ever evaluated, labeled by the reason it was rejected.
func (m *Metrics) WebhookRejected(reason string) {
	m.WebhooksRejected.WithLabelValues(reason).Inc()
}

// JobEnqueued records one task admitted onto a lane.
func (m *Metrics) JobEnqueued(lane string) {
	m.JobsEnqueued.WithLabelValues(lane).Inc()
}
