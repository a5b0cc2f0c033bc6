package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch metrics
	EventsFired      *prometheus.CounterVec
	MessagesEnqueued *prometheus.CounterVec
	WorkflowsSkipped *prometheus.CounterVec

	// Queue processor metrics
	MessagesSent     *prometheus.CounterVec
	MessagesFailed   *prometheus.CounterVec
	MessagesRequeued *prometheus.CounterVec
	QuotaDeferred    *prometheus.CounterVec
	ClaimBatchSize   prometheus.Histogram
	RunDuration      prometheus.Histogram
	ProviderLatency  *prometheus.HistogramVec
	DailyQuotaResets prometheus.Counter
}

// New creates and registers all application metrics under a namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		EventsFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fired_total",
			Help:      "Total number of trigger events fired",
		}, []string{"event"}),
		MessagesEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_enqueued_total",
			Help:      "Total number of messages enqueued by the dispatcher",
		}, []string{"channel"}),
		WorkflowsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_skipped_total",
			Help:      "Workflows skipped during dispatch, by reason",
		}, []string{"reason"}),
		MessagesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages delivered to a provider",
		}, []string{"channel", "provider"}),
		MessagesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total number of messages that exhausted their attempts",
		}, []string{"channel", "provider"}),
		MessagesRequeued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_requeued_total",
			Help:      "Messages returned to pending for a later retry",
		}, []string{"channel", "provider"}),
		QuotaDeferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_quota_deferred_total",
			Help:      "Claims released because the gateway daily quota was exhausted",
		}, []string{"provider"}),
		ClaimBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_batch_size",
			Help:      "Number of messages claimed per gateway per run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50},
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time spent on one queue processor run",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider send calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		DailyQuotaResets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_quota_resets_total",
			Help:      "Number of times the global daily counter reset ran",
		}),
	}
}
