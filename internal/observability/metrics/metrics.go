// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crucible"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Webhook metrics
	WebhooksReceived *prometheus.CounterVec
	WebhooksRejected *prometheus.CounterVec

	// Relay metrics
	SessionsActive      prometheus.Gauge
	SessionsTotal       prometheus.Counter
	FragmentsSent       prometheus.Counter
	FragmentsSuperseded prometheus.Counter

	// Grading metrics
	GradesProduced *prometheus.CounterVec
	GradesFailed   *prometheus.CounterVec

	// Lifecycle metrics
	CallRecordsPersisted prometheus.Counter
	ProviderFetchErrors  prometheus.Counter
}

// Default is the process-wide metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		WebhooksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Webhook deliveries accepted, by endpoint and event",
		}, []string{"endpoint", "event"}),
		WebhooksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_rejected_total",
			Help:      "Webhook deliveries rejected before processing",
		}, []string{"endpoint", "reason"}),

		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_sessions_active",
			Help:      "Currently open relay websocket sessions",
		}),
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_total",
			Help:      "Relay websocket sessions opened",
		}),
		FragmentsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_fragments_sent_total",
			Help:      "Response fragments written to the duplex channel",
		}),
		FragmentsSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_fragments_superseded_total",
			Help:      "Fragments discarded because a newer response was requested",
		}),

		GradesProduced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grades_produced_total",
			Help:      "Grades produced, by interview type",
		}, []string{"interview_type"}),
		GradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grades_failed_total",
			Help:      "Gradings that returned the sentinel score",
		}, []string{"interview_type"}),

		CallRecordsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_records_persisted_total",
			Help:      "Merged call records written to the durable sink",
		}),
		ProviderFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_errors_total",
			Help:      "Best-effort provider fetches that failed",
		}),
	}
}
